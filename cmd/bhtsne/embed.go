package main

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/born-ml/bhtsne/internal/features"
	"github.com/born-ml/bhtsne/tsne"
)

// Feature defaults for text input.
const (
	defaultFeatureWidth = 512
	defaultDims         = 2
)

// newFeaturizer is replaced in tests to avoid downloading BPE ranks.
var newFeaturizer = features.New

// embedOptions holds the embed command flags.
type embedOptions struct {
	input     string
	output    string
	config    string
	delimiter string
	header    bool

	text     bool
	encoding string
	width    int

	dims       int
	perplexity float64
	theta      float64
	seed       int64
	maxIter    int
	workers    int

	logFormat string
	verbose   bool
	quiet     bool
}

func newEmbedCmd() *cobra.Command {
	opts := &embedOptions{}
	defaults := tsne.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Compute a t-SNE embedding",
		Long: `Compute a t-SNE embedding of a numeric CSV (one point per row) or, with
--text, of a text file (one document per line).

Hyperparameters come from the defaults, then the --config YAML file, then
explicitly set flags. The embedding is written as CSV, one row per point.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEmbed(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "-", "input file (- for stdin)")
	f.StringVarP(&opts.output, "output", "o", "-", "output CSV file (- for stdout)")
	f.StringVarP(&opts.config, "config", "c", "", "YAML hyperparameter file")
	f.StringVar(&opts.delimiter, "delimiter", ",", "CSV field delimiter")
	f.BoolVar(&opts.header, "header", false, "skip the first CSV row")

	f.BoolVar(&opts.text, "text", false, "treat input as text, one document per line")
	f.StringVar(&opts.encoding, "encoding", features.DefaultEncoding, "tiktoken encoding for --text")
	f.IntVar(&opts.width, "width", defaultFeatureWidth, "feature vector width for --text")

	f.IntVarP(&opts.dims, "dims", "d", defaultDims, "output dimensionality")
	f.Float64VarP(&opts.perplexity, "perplexity", "p", defaults.Perplexity, "perplexity")
	f.Float64VarP(&opts.theta, "theta", "t", defaults.Theta, "Barnes-Hut accuracy (0 = exact)")
	f.Int64Var(&opts.seed, "seed", 0, "random seed (0 = time-based)")
	f.IntVar(&opts.maxIter, "max-iter", defaults.MaxIter, "number of iterations")
	f.IntVarP(&opts.workers, "workers", "w", 1, "worker goroutines for per-point work")

	f.StringVar(&opts.logFormat, "log-format", logFormatText, "log format (text or json)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "disable logging")

	return cmd
}

// resolveConfig layers defaults, the YAML file and explicitly set flags.
func resolveConfig(cmd *cobra.Command, opts *embedOptions) (tsne.Config, error) {
	cfg := tsne.DefaultConfig()
	cfg.Dims = defaultDims

	if opts.config != "" {
		fc, err := loadConfigFile(opts.config)
		if err != nil {
			return cfg, err
		}
		fc.apply(&cfg)
	}

	flags := cmd.Flags()
	if flags.Changed("dims") {
		cfg.Dims = opts.dims
	}
	if flags.Changed("perplexity") {
		cfg.Perplexity = opts.perplexity
	}
	if flags.Changed("theta") {
		cfg.Theta = opts.theta
	}
	if flags.Changed("seed") {
		cfg.RandomSeed = opts.seed
	}
	if flags.Changed("max-iter") {
		cfg.MaxIter = opts.maxIter
	}
	if flags.Changed("workers") {
		setWorkers(&cfg, opts.workers)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runEmbed(cmd *cobra.Command, opts *embedOptions) error {
	comma, size := utf8.DecodeRuneInString(opts.delimiter)
	if size == 0 || size != len(opts.delimiter) {
		return fmt.Errorf("delimiter must be a single character, got %q", opts.delimiter)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), opts.logFormat, opts.verbose, opts.quiet)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}
	cfg.Logger = logger

	in, closeIn, err := openInput(cmd, opts.input)
	if err != nil {
		return err
	}
	defer closeIn()

	x, n, d, err := loadInput(in, opts, comma)
	if err != nil {
		return err
	}
	logger.Info("input loaded", "points", n, "features", d)

	y := make([]float64, n*cfg.Dims)
	if err := tsne.Run(x, n, d, y, cfg); err != nil {
		return err
	}

	out, closeOut, err := openOutput(cmd, opts.output)
	if err != nil {
		return err
	}
	if err := writeMatrix(out, y, n, cfg.Dims, comma); err != nil {
		_ = closeOut()
		return err
	}
	return closeOut()
}

// loadInput reads the input matrix, featurizing text when requested.
func loadInput(r io.Reader, opts *embedOptions, comma rune) ([]float64, int, int, error) {
	if !opts.text {
		return readMatrix(r, comma, opts.header)
	}

	lines, err := readLines(r)
	if err != nil {
		return nil, 0, 0, err
	}
	fz, err := newFeaturizer(opts.encoding, opts.width)
	if err != nil {
		return nil, 0, 0, err
	}
	return fz.Matrix(lines), len(lines), fz.Width(), nil
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, f.Close, nil
}
