package mnist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// dataFile names one of the four dataset files and the SHA-256 digest of
// its compressed form on the public mirrors.
type dataFile struct {
	name   string
	digest string
}

var (
	trainImagesFile = dataFile{"train-images-idx3-ubyte", "440fcabf73cc546fa21475e81ea370265605f56be210a4024d2ca8f203523609"}
	trainLabelsFile = dataFile{"train-labels-idx1-ubyte", "3552534a0a558bbed6aed32b30c495cca23d567ec52cac8be1a0730e8010255c"}
	testImagesFile  = dataFile{"t10k-images-idx3-ubyte", "8d422c7b0a1c1c79245a5bcf07fe86e33eeafee792b84584aec276f5a2dbc4e6"}
	testLabelsFile  = dataFile{"t10k-labels-idx1-ubyte", "f7ae60f92e00ec6debd23a6088c31dbd2371eca3ffa0defaefb259924204aec6"}
)

// Options controls where Load looks for the dataset.
type Options struct {
	Dir             string // searched first; may be empty
	CacheDir        string // searched second and used as download target
	BaseURL         string // mirror for downloads, DefaultBaseURL if empty
	Download        bool   // fetch missing files into CacheDir
	VerifyChecksums bool   // check downloaded files against known digests
	Client          *http.Client

	// Logf receives progress messages; nil discards them.
	Logf func(format string, args ...any)
}

func (o *Options) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
	}
}

// Load reads the training and test partitions.
//
// Errors wrap ErrNotFound when a file is absent and cannot be fetched,
// ErrInvalidFormat for malformed files and ErrShapeMismatch when image and
// label counts differ. Cancelling ctx aborts pending downloads.
func Load(ctx context.Context, opts Options) (train, test *Set, err error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 5 * time.Minute}
	}

	train, err = loadSet(ctx, &opts, trainImagesFile, trainLabelsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading training set: %w", err)
	}
	test, err = loadSet(ctx, &opts, testImagesFile, testLabelsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading test set: %w", err)
	}
	return train, test, nil
}

func loadSet(ctx context.Context, opts *Options, imagesFile, labelsFile dataFile) (*Set, error) {
	imagesPath, err := resolve(ctx, opts, imagesFile)
	if err != nil {
		return nil, err
	}
	labelsPath, err := resolve(ctx, opts, labelsFile)
	if err != nil {
		return nil, err
	}

	images, err := readImagesFile(imagesPath)
	if err != nil {
		return nil, err
	}
	labels, err := readLabelsFile(labelsPath)
	if err != nil {
		return nil, err
	}

	set, err := NewSet(images, labels)
	if err != nil {
		return nil, err
	}
	opts.logf("mnist: %d samples from %s", set.Len(), filepath.Base(imagesPath))
	return set, nil
}

// candidates lists the accepted spellings of f: the canonical name, the
// dotted variant ("train-images.idx3-ubyte") and their gzip forms.
func candidates(f dataFile) []string {
	dotted := strings.Replace(f.name, "-idx", ".idx", 1)
	return []string{f.name, f.name + ".gz", dotted, dotted + ".gz"}
}

// resolve returns the path of f, downloading it if allowed.
func resolve(ctx context.Context, opts *Options, f dataFile) (string, error) {
	for _, dir := range []string{opts.Dir, opts.CacheDir} {
		if dir == "" {
			continue
		}
		for _, name := range candidates(f) {
			path := filepath.Join(dir, name)
			info, err := os.Stat(path)
			switch {
			case err == nil && info.Mode().IsRegular():
				return path, nil
			case err != nil && !errors.Is(err, fs.ErrNotExist):
				return "", fmt.Errorf("checking %s: %w", path, err)
			}
		}
	}

	if !opts.Download || opts.CacheDir == "" {
		return "", fmt.Errorf("%w: %s (searched %q and %q)", ErrNotFound, f.name, opts.Dir, opts.CacheDir)
	}

	digest := ""
	if opts.VerifyChecksums {
		digest = f.digest
	}
	name := f.name + ".gz"
	dst := filepath.Join(opts.CacheDir, name)
	url := joinURL(opts.BaseURL, name)

	opts.logf("mnist: downloading %s", url)
	if err := download(ctx, opts.Client, url, dst, digest); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %s: %w", ErrNotFound, name, err)
	}
	return dst, nil
}
