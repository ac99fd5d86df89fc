package app_test

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/digits/internal/app"
	"github.com/born-ml/digits/internal/config"
	"github.com/born-ml/digits/internal/mnist"
)

var accuracyLine = regexp.MustCompile(`^Accuracy: ([0-9.]+)\n$`)

func syntheticConfig(seed int64) config.Config {
	cfg := config.Default()
	cfg.Data.Synthetic = true
	cfg.Data.SyntheticTrain = 600
	cfg.Data.SyntheticTest = 200
	cfg.Model.Seed = seed
	cfg.Train.Seed = seed
	cfg.Output.Quiet = true
	return cfg
}

func TestRun_Synthetic(t *testing.T) {
	var out bytes.Buffer
	rep, err := app.Run(context.Background(), syntheticConfig(7), &out)
	require.NoError(t, err)

	m := accuracyLine.FindStringSubmatch(out.String())
	require.NotNil(t, m, "unexpected output %q", out.String())
	printed, err := strconv.ParseFloat(m[1], 64)
	require.NoError(t, err)
	assert.InDelta(t, rep.Accuracy(), printed, 1e-4)

	assert.GreaterOrEqual(t, rep.Accuracy(), 0.0)
	assert.LessOrEqual(t, rep.Accuracy(), 1.0)
	assert.Equal(t, 600, rep.TrainSamples)
	assert.Equal(t, 200, rep.TestSamples)
	assert.Equal(t, 200, rep.Test.Samples)
	assert.Equal(t, 89610, rep.Parameters)
	assert.Equal(t, 4, rep.History.Len())
	assert.Contains(t, rep.Backend, "Autodiff")
	assert.Positive(t, rep.Duration)
}

func TestRun_LearnsAcrossSeeds(t *testing.T) {
	for _, seed := range []int64{3, 11} {
		rep, err := app.Run(context.Background(), syntheticConfig(seed), &bytes.Buffer{})
		require.NoError(t, err)
		assert.Greater(t, rep.Accuracy(), 0.5, "seed %d should be well above chance", seed)
	}
}

func TestRun_Rescale(t *testing.T) {
	cfg := syntheticConfig(5)
	cfg.Data.Normalization = config.NormRescale
	cfg.Train.Epochs = 1

	rep, err := app.Run(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.History.Len())
}

func TestRun_SampleLimits(t *testing.T) {
	cfg := syntheticConfig(1)
	cfg.Data.Samples = 100
	cfg.Data.TestSamples = 40
	cfg.Train.Epochs = 1

	rep, err := app.Run(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 100, rep.TrainSamples)
	assert.Equal(t, 40, rep.TestSamples)
	assert.Equal(t, 100, rep.History.Epochs[0].Samples)
}

func TestRun_WritesPlot(t *testing.T) {
	cfg := syntheticConfig(2)
	cfg.Train.Epochs = 2
	cfg.Output.Plot = filepath.Join(t.TempDir(), "history.png")

	_, err := app.Run(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)

	info, err := os.Stat(cfg.Output.Plot)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRun_LogsProgress(t *testing.T) {
	var logs bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&logs)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})

	cfg := syntheticConfig(4)
	cfg.Output.Quiet = false
	cfg.Train.Epochs = 1

	_, err := app.Run(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)

	s := logs.String()
	assert.Contains(t, s, "Total params: 89610")
	assert.Contains(t, s, "Epoch 1/1")
	assert.Contains(t, s, "train=600 test=200")
}

func TestRun_MissingData(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Dir = t.TempDir()
	cfg.Data.CacheDir = t.TempDir()
	cfg.Data.Download = false
	cfg.Output.Quiet = true

	var out bytes.Buffer
	_, err := app.Run(context.Background(), cfg, &out)
	require.ErrorIs(t, err, mnist.ErrNotFound)
	assert.Empty(t, out.String())
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := syntheticConfig(1)
	cfg.Train.BatchSize = 0

	_, err := app.Run(context.Background(), cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := app.Run(ctx, syntheticConfig(1), &bytes.Buffer{})
	require.ErrorIs(t, err, context.Canceled)
}
