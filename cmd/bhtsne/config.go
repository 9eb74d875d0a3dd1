package main

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/bhtsne/tsne"
)

// fileConfig is the YAML form of the t-SNE hyperparameters.
// Absent keys keep their defaults.
type fileConfig struct {
	Dims            *int     `yaml:"dims"`
	Perplexity      *float64 `yaml:"perplexity"`
	Theta           *float64 `yaml:"theta"`
	RandomSeed      *int64   `yaml:"random_seed"`
	MaxIter         *int     `yaml:"max_iter"`
	StopLyingIter   *int     `yaml:"stop_lying_iter"`
	MomSwitchIter   *int     `yaml:"mom_switch_iter"`
	Exaggeration    *float64 `yaml:"exaggeration"`
	LearningRate    *float64 `yaml:"learning_rate"`
	InitialMomentum *float64 `yaml:"initial_momentum"`
	FinalMomentum   *float64 `yaml:"final_momentum"`
	ReportEvery     *int     `yaml:"report_every"`
	Workers         *int     `yaml:"workers"`
}

// loadConfigFile reads a YAML hyperparameter file. Unknown keys are rejected.
func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &fc, nil
}

// apply overlays the keys present in fc onto cfg.
func (fc *fileConfig) apply(cfg *tsne.Config) {
	setIfPresent(&cfg.Dims, fc.Dims)
	setIfPresent(&cfg.Perplexity, fc.Perplexity)
	setIfPresent(&cfg.Theta, fc.Theta)
	setIfPresent(&cfg.RandomSeed, fc.RandomSeed)
	setIfPresent(&cfg.MaxIter, fc.MaxIter)
	setIfPresent(&cfg.StopLyingIter, fc.StopLyingIter)
	setIfPresent(&cfg.MomSwitchIter, fc.MomSwitchIter)
	setIfPresent(&cfg.Exaggeration, fc.Exaggeration)
	setIfPresent(&cfg.LearningRate, fc.LearningRate)
	setIfPresent(&cfg.InitialMomentum, fc.InitialMomentum)
	setIfPresent(&cfg.FinalMomentum, fc.FinalMomentum)
	setIfPresent(&cfg.ReportEvery, fc.ReportEvery)
	if fc.Workers != nil {
		setWorkers(cfg, *fc.Workers)
	}
}

func setIfPresent[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// setWorkers configures per-point parallelism. 1 or less runs sequentially.
func setWorkers(cfg *tsne.Config, workers int) {
	if workers <= 1 {
		cfg.Parallel = tsne.ParallelConfig{}
		return
	}
	cfg.Parallel = tsne.DefaultParallelConfig()
	cfg.Parallel.Enabled = true
	cfg.Parallel.NumWorkers = workers
}
