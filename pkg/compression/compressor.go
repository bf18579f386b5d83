// Package compression provides the compression layer for battkit
// containers. Table streams are wrapped in a compressing writer when a
// container is written with a non-zero compression level, and in the
// matching reader when read back.
//
// Algorithms:
//   - Zstd: best ratio, good speed (default for compressed containers)
//   - Gzip: wide compatibility
//   - Snappy: fastest, moderate ratio
//   - LZ4: very fast, decent ratio
//
// Levels follow the container option range 0-9, where 0 disables
// compression entirely and 9 maximizes the ratio.
package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
)

// Valid reports whether the algorithm is known
func (a Algorithm) Valid() bool {
	switch a {
	case None, Gzip, Snappy, LZ4, Zstd:
		return true
	}
	return false
}

// Level is a compression level between 0 (off) and 9 (maximum)
type Level int

const (
	// MinLevel disables compression
	MinLevel Level = 0
	// DefaultLevel balances speed and ratio
	DefaultLevel Level = 5
	// MaxLevel maximizes the compression ratio
	MaxLevel Level = 9
)

// Compressor provides compression and decompression for container
// streams. Implementations are safe for concurrent use.
type Compressor interface {
	// Compress compresses data in memory
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data in memory
	Decompress(data []byte) ([]byte, error)

	// WrapWriter returns a writer that compresses into dst. The
	// returned writer must be closed to flush trailing blocks.
	WrapWriter(dst io.Writer) (io.WriteCloser, error)

	// WrapReader returns a reader that decompresses from src
	WrapReader(src io.Reader) (io.ReadCloser, error)

	// Algorithm returns the compression algorithm used
	Algorithm() Algorithm

	// Level returns the configured compression level
	Level() Level
}

// ForLevel returns the container default compressor for a level:
// level 0 yields the pass-through compressor, anything higher yields
// Zstd at the corresponding encoder level.
func ForLevel(level Level) (Compressor, error) {
	if level <= MinLevel {
		return New(None, MinLevel)
	}
	return New(Zstd, level)
}

// New creates a compressor for the given algorithm and level
func New(algorithm Algorithm, level Level) (Compressor, error) {
	if level < MinLevel || level > MaxLevel {
		return nil, fmt.Errorf("compression level %d outside range [0, 9]", level)
	}
	switch algorithm {
	case None:
		return &noneCompressor{}, nil
	case Gzip:
		return &gzipCompressor{level: level}, nil
	case Snappy:
		return &snappyCompressor{level: level}, nil
	case LZ4:
		return &lz4Compressor{level: level}, nil
	case Zstd:
		return &zstdCompressor{level: level}, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

// compressInMemory runs a stream wrapper over an in-memory buffer
func compressInMemory(c Compressor, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := c.WrapWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressInMemory(c Compressor, data []byte) ([]byte, error) {
	r, err := c.WrapReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// nopWriteCloser adds a no-op Close to a writer
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// None compressor (pass-through)
type noneCompressor struct{}

func (noneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (noneCompressor) Algorithm() Algorithm                   { return None }
func (noneCompressor) Level() Level                           { return MinLevel }

func (noneCompressor) WrapWriter(dst io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{dst}, nil
}

func (noneCompressor) WrapReader(src io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(src), nil
}

// Gzip compressor
type gzipCompressor struct {
	level Level
}

func (g *gzipCompressor) Algorithm() Algorithm { return Gzip }
func (g *gzipCompressor) Level() Level         { return g.level }

func (g *gzipCompressor) Compress(data []byte) ([]byte, error) {
	return compressInMemory(g, data)
}

func (g *gzipCompressor) Decompress(data []byte) ([]byte, error) {
	return decompressInMemory(g, data)
}

func (g *gzipCompressor) WrapWriter(dst io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(dst, mapGzipLevel(g.level))
}

func (g *gzipCompressor) WrapReader(src io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(src)
}

// Snappy compressor
type snappyCompressor struct {
	level Level
}

func (s *snappyCompressor) Algorithm() Algorithm { return Snappy }
func (s *snappyCompressor) Level() Level         { return s.level }

func (s *snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (s *snappyCompressor) Decompress(data []byte) ([]byte, error) {
	return snappy.Decode(nil, data)
}

func (s *snappyCompressor) WrapWriter(dst io.Writer) (io.WriteCloser, error) {
	return snappy.NewBufferedWriter(dst), nil
}

func (s *snappyCompressor) WrapReader(src io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(snappy.NewReader(src)), nil
}

// LZ4 compressor
type lz4Compressor struct {
	level Level
}

func (l *lz4Compressor) Algorithm() Algorithm { return LZ4 }
func (l *lz4Compressor) Level() Level         { return l.level }

func (l *lz4Compressor) Compress(data []byte) ([]byte, error) {
	return compressInMemory(l, data)
}

func (l *lz4Compressor) Decompress(data []byte) ([]byte, error) {
	return decompressInMemory(l, data)
}

func (l *lz4Compressor) WrapWriter(dst io.Writer) (io.WriteCloser, error) {
	w := lz4.NewWriter(dst)
	if err := w.Apply(lz4.CompressionLevelOption(mapLZ4Level(l.level))); err != nil {
		return nil, err
	}
	return w, nil
}

func (l *lz4Compressor) WrapReader(src io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(src)), nil
}

// Zstd compressor
type zstdCompressor struct {
	level Level
}

func (z *zstdCompressor) Algorithm() Algorithm { return Zstd }
func (z *zstdCompressor) Level() Level         { return z.level }

func (z *zstdCompressor) Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(mapZstdLevel(z.level)))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func (z *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

func (z *zstdCompressor) WrapWriter(dst io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(dst, zstd.WithEncoderLevel(mapZstdLevel(z.level)))
}

func (z *zstdCompressor) WrapReader(src io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, err
	}
	return &zstdReadCloser{dec}, nil
}

// zstdReadCloser adapts the zstd decoder's Close (which returns
// nothing) to io.ReadCloser
type zstdReadCloser struct {
	dec *zstd.Decoder
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return nil
}

// Level mapping helpers

func mapGzipLevel(level Level) int {
	switch {
	case level <= 3:
		return gzip.BestSpeed
	case level >= 8:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch {
	case level <= 3:
		return lz4.Fast
	case level >= 8:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch {
	case level <= 3:
		return zstd.SpeedFastest
	case level <= 6:
		return zstd.SpeedDefault
	case level <= 8:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}
