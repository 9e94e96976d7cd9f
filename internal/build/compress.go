package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"
)

// Compression algorithms.
const (
	AlgorithmGzip   = "gzip"
	AlgorithmBrotli = "brotli"
)

// CompressedFile is a compressed copy written next to an output file.
type CompressedFile struct {
	Source       string
	Path         string
	Algorithm    string
	OriginalSize int64
	Size         int64
}

// Ratio is the compressed size over the original size.
func (c CompressedFile) Ratio() float64 {
	if c.OriginalSize == 0 {
		return 0
	}
	return float64(c.Size) / float64(c.OriginalSize)
}

// Compressor writes compressed copies of files.
type Compressor struct {
	Algorithm string
	// Threshold is the minimum original size in bytes.
	Threshold int64
	// MinRatio keeps a copy only when it is smaller than MinRatio times the
	// original.
	MinRatio float64
}

// Extension returns the suffix appended to compressed copies.
func (c Compressor) Extension() string {
	if c.Algorithm == AlgorithmBrotli {
		return ".br"
	}
	return ".gz"
}

// Compress encodes data with the configured algorithm.
func (c Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser

	switch c.Algorithm {
	case AlgorithmGzip:
		gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		w = gz
	case AlgorithmBrotli:
		w = brotli.NewWriterLevel(&buf, brotli.BestCompression)
	default:
		return nil, fmt.Errorf("unknown compression algorithm %q", c.Algorithm)
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Run compresses files concurrently. Files below the threshold, and copies
// that do not reach the ratio, are skipped. Results are sorted by path.
func (c Compressor) Run(ctx context.Context, files []string) ([]CompressedFile, error) {
	var (
		mu      sync.Mutex
		results []CompressedFile
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			if int64(len(data)) < c.Threshold {
				return nil
			}

			compressed, err := c.Compress(data)
			if err != nil {
				return fmt.Errorf("failed to compress %s: %w", file, err)
			}
			if float64(len(compressed)) >= c.MinRatio*float64(len(data)) {
				return nil
			}

			target := file + c.Extension()
			if err := os.WriteFile(target, compressed, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", target, err)
			}

			mu.Lock()
			results = append(results, CompressedFile{
				Source:       file,
				Path:         target,
				Algorithm:    c.Algorithm,
				OriginalSize: int64(len(data)),
				Size:         int64(len(compressed)),
			})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, nil
}
