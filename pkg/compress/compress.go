// Package compress negotiates and applies HTTP content encodings for the
// passcheck API.
//
// Responses are encoded with zstd or gzip when the client asks for it and
// the body is large enough to be worth it. Request bodies sent with a
// Content-Encoding are decoded before they reach a handler.
package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	AlgorithmZSTD Algorithm = "zstd"
	AlgorithmGzip Algorithm = "gzip"
	AlgorithmNone Algorithm = "identity"
)

// ParseAlgorithm maps a Content-Encoding token to an Algorithm.
func ParseAlgorithm(token string) (Algorithm, bool) {
	switch token {
	case "zstd":
		return AlgorithmZSTD, true
	case "gzip", "x-gzip":
		return AlgorithmGzip, true
	case "identity", "":
		return AlgorithmNone, true
	default:
		return "", false
	}
}

// Level represents compression level on a 1 (fastest) to 9 (best) scale.
type Level int

const (
	LevelFastest Level = 1
	LevelDefault Level = 3
	LevelBest    Level = 9
)

// Compressor encodes and decodes payloads with a single algorithm.
// It is safe for concurrent use.
type Compressor struct {
	algorithm Algorithm
	level     Level

	zstdEncoders sync.Pool
	gzipWriters  sync.Pool
}

// NewCompressor creates a compressor for the algorithm and level.
func NewCompressor(algorithm Algorithm, level Level) *Compressor {
	c := &Compressor{algorithm: algorithm, level: level}

	switch algorithm {
	case AlgorithmZSTD:
		c.zstdEncoders.New = func() any {
			enc, _ := zstd.NewWriter(nil,
				zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(int(level))),
				zstd.WithEncoderConcurrency(1),
			)
			return enc
		}
	case AlgorithmGzip:
		c.gzipWriters.New = func() any {
			w, _ := gzip.NewWriterLevel(nil, gzipLevel(level))
			return w
		}
	}
	return c
}

func gzipLevel(level Level) int {
	switch {
	case level <= LevelDefault:
		return gzip.BestSpeed
	case level >= 7:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

// Algorithm returns the compression algorithm.
func (c *Compressor) Algorithm() Algorithm {
	return c.algorithm
}

// Compress encodes data.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	switch c.algorithm {
	case AlgorithmZSTD:
		enc := c.zstdEncoders.Get().(*zstd.Encoder)
		defer c.zstdEncoders.Put(enc)
		return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case AlgorithmGzip:
		w := c.gzipWriters.Get().(*gzip.Writer)
		defer c.gzipWriters.Put(w)

		var buf bytes.Buffer
		w.Reset(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("gzip write error: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip close error: %w", err)
		}
		return buf.Bytes(), nil
	case AlgorithmNone:
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", c.algorithm)
	}
}

// NewReader wraps r with a decoder for algorithm. The returned closer
// releases decoder resources; it does not close r.
func NewReader(algorithm Algorithm, r io.Reader) (io.ReadCloser, error) {
	switch algorithm {
	case AlgorithmZSTD:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd reader error: %w", err)
		}
		return dec.IOReadCloser(), nil
	case AlgorithmGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader error: %w", err)
		}
		return zr, nil
	case AlgorithmNone:
		return io.NopCloser(r), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}
