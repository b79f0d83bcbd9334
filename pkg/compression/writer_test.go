package compression

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
)

// level picks the speed/ratio trade-off for fixtures written in tests.
type level int

const (
	fastest      level = 1
	defaultLevel level = 5
	best         level = 9
)

// newWriter wraps w with a compressor for alg. The result must be closed to
// flush the final frame; closing does not close w.
func newWriter(w io.Writer, alg Algorithm, lvl level) (io.WriteCloser, error) {
	switch alg {
	case None, "":
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriterLevel(w, gzipLevel(lvl))
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstdLevel(lvl)))
	case LZ4:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.CompressionLevelOption(lz4Level(lvl))); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid lz4 level")
		}
		return lw, nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case S2:
		return s2.NewWriter(w), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm: %s", alg)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func gzipLevel(lvl level) int {
	switch lvl {
	case fastest:
		return gzip.BestSpeed
	case best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func lz4Level(lvl level) lz4.CompressionLevel {
	switch lvl {
	case fastest:
		return lz4.Fast
	case best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func zstdLevel(lvl level) zstd.EncoderLevel {
	switch lvl {
	case fastest:
		return zstd.SpeedFastest
	case best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
