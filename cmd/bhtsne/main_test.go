package main

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bhtsne/internal/features"
	"github.com/born-ml/bhtsne/tsne"
)

// =============================================================================
// Helpers
// =============================================================================

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func randomCSV(n, d int, seed int64) string {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // Test data.
	var sb strings.Builder
	for i := 0; i < n; i++ {
		for k := 0; k < d; k++ {
			if k > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "%.6f", rng.NormFloat64())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// wordEncoder assigns a stable ID to every whitespace-separated word.
type wordEncoder struct {
	ids map[string]int
}

func (w *wordEncoder) Encode(text string, _, _ []string) []int {
	var out []int
	for _, word := range strings.Fields(text) {
		id, ok := w.ids[word]
		if !ok {
			id = len(w.ids)
			w.ids[word] = id
		}
		out = append(out, id)
	}
	return out
}

// =============================================================================
// Command Definitions
// =============================================================================

func TestRootCmd_Definition(t *testing.T) {
	root := newRootCmd()
	assert.Equal(t, "bhtsne", root.Use)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "embed")
	assert.Contains(t, names, "ops")
	assert.Contains(t, names, "version")
}

func TestEmbedCmd_Flags(t *testing.T) {
	cmd := newEmbedCmd()
	flags := cmd.Flags()

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"input", "i", "-"},
		{"output", "o", "-"},
		{"dims", "d", "2"},
		{"perplexity", "p", "50"},
		{"theta", "t", "0.5"},
		{"max-iter", "", "1000"},
		{"seed", "", "0"},
		{"log-format", "", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := flags.Lookup(tt.name)
			require.NotNil(t, f)
			assert.Equal(t, tt.shorthand, f.Shorthand)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "bhtsne "+version+"\n", out)
}

func TestOpsCmd(t *testing.T) {
	out, _, err := execute(t, "", "ops")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "TSNE\n"))
	assert.Contains(t, out, "perplexity")
}

// =============================================================================
// Embed
// =============================================================================

func TestEmbed_Files(t *testing.T) {
	in := writeFile(t, "x.csv", randomCSV(30, 4, 1))
	out := filepath.Join(t.TempDir(), "y.csv")

	_, _, err := execute(t, "", "embed", "-i", in, "-o", out,
		"--perplexity", "5", "--max-iter", "100", "--seed", "1", "-q")
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	y, n, d, err := readMatrix(f, ',', false)
	require.NoError(t, err)
	assert.Equal(t, 30, n)
	assert.Equal(t, 2, d)
	assert.Len(t, y, 60)
}

func TestEmbed_StdinDeterministic(t *testing.T) {
	csv := randomCSV(25, 3, 2)
	args := []string{"embed", "--dims", "3", "--perplexity", "4", "--max-iter", "80", "--seed", "9", "-q"}

	first, _, err := execute(t, csv, args...)
	require.NoError(t, err)
	second, _, err := execute(t, csv, args...)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, strings.Split(strings.TrimSpace(first), "\n"), 25)
	for _, line := range strings.Split(strings.TrimSpace(first), "\n") {
		assert.Len(t, strings.Split(line, ","), 3)
	}
}

func TestEmbed_Text(t *testing.T) {
	orig := newFeaturizer
	newFeaturizer = func(_ string, width int) (*features.Featurizer, error) {
		return features.NewWithEncoder(&wordEncoder{ids: make(map[string]int)}, width)
	}
	t.Cleanup(func() { newFeaturizer = orig })

	var sb strings.Builder
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			fmt.Fprintf(&sb, "gradient descent step %d\n", i)
		} else {
			fmt.Fprintf(&sb, "bread recipe number %d\n\n", i)
		}
	}

	out, _, err := execute(t, sb.String(), "embed", "--text", "--width", "32",
		"--perplexity", "3", "--max-iter", "60", "--seed", "5", "-q")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 20)
}

func TestEmbed_Logging(t *testing.T) {
	_, stderr, err := execute(t, randomCSV(20, 3, 3), "embed",
		"--perplexity", "3", "--max-iter", "60", "--seed", "1", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"input loaded"`)
	assert.Contains(t, stderr, `"msg":"fitting performed"`)
}

func TestEmbed_Errors(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		is    error
	}{
		{"perplexity too large", randomCSV(10, 2, 4), []string{"--perplexity", "5"}, tsne.ErrPerplexityTooLarge},
		{"invalid theta", randomCSV(10, 2, 4), []string{"--theta", "2"}, tsne.ErrInvalidConfig},
		{"bad number", "1,2\n3,x\n", nil, nil},
		{"ragged rows", "1,2\n3\n", nil, nil},
		{"empty input", "", nil, nil},
		{"bad delimiter", "1,2\n", []string{"--delimiter", ";;"}, nil},
		{"bad log format", "1,2\n", []string{"--log-format", "xml"}, nil},
		{"missing input file", "", []string{"-i", "/nonexistent/x.csv"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"embed", "-q", "--max-iter", "10"}, tt.args...)
			_, _, err := execute(t, tt.stdin, args...)
			require.Error(t, err)
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is), "got %v", err)
			}
		})
	}
}

// =============================================================================
// Configuration
// =============================================================================

func TestResolveConfig_Layering(t *testing.T) {
	path := writeFile(t, "tsne.yaml", `
dims: 3
perplexity: 12
theta: 0.25
max_iter: 400
learning_rate: 150
workers: 4
`)

	cmd := newEmbedCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--perplexity", "7"}))
	opts := optsFrom(t, cmd)

	cfg, err := resolveConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Dims)
	assert.Equal(t, 7.0, cfg.Perplexity)
	assert.Equal(t, 0.25, cfg.Theta)
	assert.Equal(t, 400, cfg.MaxIter)
	assert.Equal(t, 150.0, cfg.LearningRate)
	assert.Equal(t, 250, cfg.StopLyingIter)
	assert.True(t, cfg.Parallel.Enabled)
	assert.Equal(t, 4, cfg.Parallel.NumWorkers)
}

func TestResolveConfig_Defaults(t *testing.T) {
	cmd := newEmbedCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := resolveConfig(cmd, optsFrom(t, cmd))
	require.NoError(t, err)

	want := tsne.DefaultConfig()
	want.Dims = defaultDims
	assert.Equal(t, want, cfg)
}

func TestLoadConfigFile_Errors(t *testing.T) {
	_, err := loadConfigFile(writeFile(t, "bad.yaml", "perplexity: 5\nbogus: 1\n"))
	assert.Error(t, err)

	_, err = loadConfigFile(writeFile(t, "bad.yaml", "perplexity: [1, 2\n"))
	assert.Error(t, err)

	_, err = loadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// optsFrom reads the parsed flag values back into embedOptions.
func optsFrom(t *testing.T, cmd *cobra.Command) *embedOptions {
	t.Helper()
	f := cmd.Flags()
	opts := &embedOptions{}
	var err error
	opts.config, err = f.GetString("config")
	require.NoError(t, err)
	opts.dims, err = f.GetInt("dims")
	require.NoError(t, err)
	opts.perplexity, err = f.GetFloat64("perplexity")
	require.NoError(t, err)
	opts.theta, err = f.GetFloat64("theta")
	require.NoError(t, err)
	opts.seed, err = f.GetInt64("seed")
	require.NoError(t, err)
	opts.maxIter, err = f.GetInt("max-iter")
	require.NoError(t, err)
	opts.workers, err = f.GetInt("workers")
	require.NoError(t, err)
	return opts
}

// =============================================================================
// CSV
// =============================================================================

func TestReadMatrix(t *testing.T) {
	data, n, d, err := readMatrix(strings.NewReader("a;b\n# comment\n1;2\n 3; 4.5\n"), ';', true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, d)
	assert.Equal(t, []float64{1, 2, 3, 4.5}, data)
}

func TestReadMatrix_HeaderWidth(t *testing.T) {
	data, n, d, err := readMatrix(strings.NewReader("id,x,y\n1,2\n3,4\n"), ',', true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, d)
	assert.Equal(t, []float64{1, 2, 3, 4}, data)

	_, _, _, err = readMatrix(strings.NewReader("1,2\n3,4,5\n"), ',', false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2 has 3 columns, want 2")
}

func TestWriteMatrix(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMatrix(&buf, []float64{1, -2.5, 0.125, 3}, 2, 2, ','))
	assert.Equal(t, "1,-2.5\n0.125,3\n", buf.String())
}

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("first\n\n  second  \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, lines)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, logFormatJSON, false, false)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"k":1`)

	buf.Reset()
	logger, err = newLogger(&buf, logFormatText, true, false)
	require.NoError(t, err)
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")

	buf.Reset()
	logger, err = newLogger(&buf, logFormatText, true, true)
	require.NoError(t, err)
	logger.Info("dropped")
	assert.Empty(t, buf.String())
}
