// Package config holds the runtime knobs of a training run. Defaults match
// the reference MNIST script; a YAML file and command-line flags can
// override them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Normalization modes.
const (
	NormL2      = "l2"      // unit L2 norm along Data.Axis
	NormRescale = "rescale" // divide by 255
)

// Config captures the runtime knobs for a training run.
type Config struct {
	Data   DataConfig   `yaml:"data"`
	Model  ModelConfig  `yaml:"model"`
	Train  TrainConfig  `yaml:"train"`
	Output OutputConfig `yaml:"output"`
}

// DataConfig selects the dataset and its preprocessing.
type DataConfig struct {
	Dir             string `yaml:"dir"`
	CacheDir        string `yaml:"cache_dir"`
	BaseURL         string `yaml:"base_url"`
	Download        bool   `yaml:"download"`
	VerifyChecksums bool   `yaml:"verify_checksums"`
	Synthetic       bool   `yaml:"synthetic"`
	SyntheticTrain  int    `yaml:"synthetic_train"`
	SyntheticTest   int    `yaml:"synthetic_test"`
	Samples         int    `yaml:"samples"`      // limit on training samples, 0 = all
	TestSamples     int    `yaml:"test_samples"` // limit on test samples, 0 = all
	Normalization   string `yaml:"normalization"`
	Axis            int    `yaml:"axis"`
}

// ModelConfig describes the classifier.
type ModelConfig struct {
	Hidden []int `yaml:"hidden"`
	Seed   int64 `yaml:"seed"` // 0 = random initialization
}

// TrainConfig holds the optimizer and fit parameters.
type TrainConfig struct {
	Optimizer     string  `yaml:"optimizer"`
	LearningRate  float64 `yaml:"learning_rate"`
	Momentum      float64 `yaml:"momentum"`
	BatchSize     int     `yaml:"batch_size"`
	Epochs        int     `yaml:"epochs"`
	Shuffle       bool    `yaml:"shuffle"`
	Seed          int64   `yaml:"seed"` // shuffle seed, 0 = random
	EvalBatchSize int     `yaml:"eval_batch_size"`
}

// OutputConfig controls what the run writes besides the accuracy line.
type OutputConfig struct {
	Plot    string `yaml:"plot"` // training curve image path, empty = none
	Summary bool   `yaml:"summary"`
	Quiet   bool   `yaml:"quiet"`
}

// Default returns the configuration of the reference script: two hidden
// layers of 100 units, SGD with learning rate 0.1, batch size 8, 4 epochs.
func Default() Config {
	return Config{
		Data: DataConfig{
			Download:        true,
			VerifyChecksums: true,
			SyntheticTrain:  6000,
			SyntheticTest:   1000,
			Normalization:   NormL2,
			Axis:            1,
		},
		Model: ModelConfig{
			Hidden: []int{100, 100},
		},
		Train: TrainConfig{
			Optimizer:     "sgd",
			LearningRate:  0.1,
			BatchSize:     8,
			Epochs:        4,
			Shuffle:       true,
			EvalBatchSize: 32,
		},
		Output: OutputConfig{
			Summary: true,
		},
	}
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Overrides captures CLI supplied values. Zero values and nil pointers
// leave the config untouched.
type Overrides struct {
	DataDir       string
	CacheDir      string
	Download      *bool
	Synthetic     *bool
	Samples       int
	Normalization string
	Hidden        []int
	Seed          int64
	LearningRate  float64
	BatchSize     int
	Epochs        int
	Plot          string
	Quiet         *bool
}

// ApplyOverrides updates c using any set override. Seed applies to both
// weight initialization and shuffling.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataDir != "" {
		c.Data.Dir = o.DataDir
	}
	if o.CacheDir != "" {
		c.Data.CacheDir = o.CacheDir
	}
	if o.Download != nil {
		c.Data.Download = *o.Download
	}
	if o.Synthetic != nil {
		c.Data.Synthetic = *o.Synthetic
	}
	if o.Samples > 0 {
		c.Data.Samples = o.Samples
	}
	if o.Normalization != "" {
		c.Data.Normalization = o.Normalization
	}
	if len(o.Hidden) > 0 {
		c.Model.Hidden = append([]int(nil), o.Hidden...)
	}
	if o.Seed != 0 {
		c.Model.Seed = o.Seed
		c.Train.Seed = o.Seed
	}
	if o.LearningRate > 0 {
		c.Train.LearningRate = o.LearningRate
	}
	if o.BatchSize > 0 {
		c.Train.BatchSize = o.BatchSize
	}
	if o.Epochs > 0 {
		c.Train.Epochs = o.Epochs
	}
	if o.Plot != "" {
		c.Output.Plot = o.Plot
	}
	if o.Quiet != nil {
		c.Output.Quiet = *o.Quiet
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Train.BatchSize > 0, "train.batch_size must be > 0 (got %d)", c.Train.BatchSize)
	check(c.Train.Epochs > 0, "train.epochs must be > 0 (got %d)", c.Train.Epochs)
	check(c.Train.LearningRate > 0, "train.learning_rate must be > 0 (got %g)", c.Train.LearningRate)
	check(c.Train.Momentum >= 0 && c.Train.Momentum < 1, "train.momentum must be in [0, 1) (got %g)", c.Train.Momentum)
	check(c.Train.EvalBatchSize > 0, "train.eval_batch_size must be > 0 (got %d)", c.Train.EvalBatchSize)
	switch strings.ToLower(c.Train.Optimizer) {
	case "sgd", "adam":
	default:
		check(false, "train.optimizer must be sgd or adam (got %q)", c.Train.Optimizer)
	}

	check(len(c.Model.Hidden) > 0, "model.hidden must list at least one layer width")
	for i, h := range c.Model.Hidden {
		check(h > 0, "model.hidden[%d] must be > 0 (got %d)", i, h)
	}

	switch c.Data.Normalization {
	case NormL2:
		check(c.Data.Axis >= -3 && c.Data.Axis <= 2, "data.axis must be in [-3, 2] (got %d)", c.Data.Axis)
	case NormRescale:
	default:
		check(false, "data.normalization must be %q or %q (got %q)", NormL2, NormRescale, c.Data.Normalization)
	}
	check(c.Data.Samples >= 0, "data.samples must be >= 0 (got %d)", c.Data.Samples)
	check(c.Data.TestSamples >= 0, "data.test_samples must be >= 0 (got %d)", c.Data.TestSamples)
	if c.Data.Synthetic {
		check(c.Data.SyntheticTrain > 0, "data.synthetic_train must be > 0 (got %d)", c.Data.SyntheticTrain)
		check(c.Data.SyntheticTest > 0, "data.synthetic_test must be > 0 (got %d)", c.Data.SyntheticTest)
	}

	return errors.Join(errs...)
}
