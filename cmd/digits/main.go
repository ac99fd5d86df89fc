// Package main provides the digits CLI: it trains a small multilayer
// perceptron on MNIST and prints its test accuracy.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/digits/internal/app"
	"github.com/born-ml/digits/internal/config"
)

const version = "v0.1.0"

// Exit codes. Usage errors follow the flag package convention.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "version" {
		fmt.Fprintf(stdout, "digits %s\n", version)
		return exitOK
	}

	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	runID := uuid.NewString()
	log.SetOutput(stderr)
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix(fmt.Sprintf("[%s] ", runID[:8]))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, stdout); err != nil {
		log.Printf("run failed: %v", err)
		return exitFailure
	}
	return exitOK
}

type cliOptions struct {
	configPath string
	overrides  config.Overrides
}

func run(ctx context.Context, opts cliOptions, out io.Writer) error {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	cfg.ApplyOverrides(opts.overrides)

	rep, err := app.Run(ctx, cfg, out)
	if err != nil {
		return err
	}
	if !cfg.Output.Quiet {
		log.Printf("done in %s (%d train, %d test samples)", rep.Duration.Round(time.Millisecond), rep.TrainSamples, rep.TestSamples)
	}
	return nil
}

func parseArgs(args []string, stderr io.Writer) (cliOptions, error) {
	var (
		opts   cliOptions
		hidden string
		o      = &opts.overrides
	)

	fs := flag.NewFlagSet("digits", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&o.DataDir, "data", "", "directory holding the MNIST IDX files")
	fs.StringVar(&o.CacheDir, "cache", "", "download cache directory")
	download := fs.Bool("download", true, "download missing dataset files")
	synthetic := fs.Bool("synthetic", false, "train on generated digits instead of MNIST")
	quiet := fs.Bool("quiet", false, "print only the final accuracy")
	fs.IntVar(&o.Epochs, "epochs", 0, "number of training epochs")
	fs.IntVar(&o.BatchSize, "batch", 0, "mini-batch size")
	fs.Float64Var(&o.LearningRate, "lr", 0, "learning rate")
	fs.StringVar(&hidden, "hidden", "", "comma separated hidden layer widths, e.g. 100,100")
	fs.Int64Var(&o.Seed, "seed", 0, "seed for weights and shuffling (0 = random each run)")
	fs.IntVar(&o.Samples, "samples", 0, "limit the number of training samples")
	fs.StringVar(&o.Normalization, "norm", "", "input normalization: l2 or rescale")
	fs.StringVar(&o.Plot, "plot", "", "write training curves to this .png or .svg file")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: digits [flags]\n       digits version\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	// Only explicitly passed bool flags override the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "download":
			o.Download = download
		case "synthetic":
			o.Synthetic = synthetic
		case "quiet":
			o.Quiet = quiet
		}
	})

	if hidden != "" {
		widths, err := parseHidden(hidden)
		if err != nil {
			return cliOptions{}, err
		}
		o.Hidden = widths
	}
	return opts, nil
}

func parseHidden(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	widths := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid hidden layer width %q", p)
		}
		widths = append(widths, n)
	}
	return widths, nil
}
