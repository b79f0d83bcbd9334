// Package reader turns files on disk into source units.
//
// The format is chosen by extension: .csv and .tsv become Tabular units with an
// inferred schema, .jsonl and .ndjson become lazy Streams, .json is decoded
// into an Opaque value and anything else is read as text. A trailing
// compression extension (.gz, .zst, .lz4, .sz, .s2) is decompressed on the fly
// and the format comes from the extension before it.
package reader

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ingest/pkg/compression"
	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/json"
	"github.com/ajitpratap0/nebula-ingest/pkg/logger"
	"github.com/ajitpratap0/nebula-ingest/pkg/source"
)

// Reader produces a unit for one path.
type Reader interface {
	Read(ctx context.Context, path string) (source.Unit, error)
}

// FileReader reads local files.
type FileReader struct {
	// MaxLineBytes bounds a single JSON Lines record. Zero uses 16 MiB.
	MaxLineBytes int
	logger       *zap.Logger
}

// New creates a FileReader.
func New() *FileReader {
	return &FileReader{logger: logger.With(zap.String("component", "reader"))}
}

// Read implements Reader.
func (r *FileReader) Read(ctx context.Context, path string) (source.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to stat file").WithDetail("path", path)
	}
	if info.IsDir() {
		return nil, errors.New(errors.ErrorTypeIO, "path is a directory").WithDetail("path", path)
	}

	alg, inner := compression.Detect(path)
	ext := strings.ToLower(filepath.Ext(inner))
	r.logger.Debug("reading file", zap.String("path", path), zap.String("format", ext), zap.String("compression", string(alg)))

	switch ext {
	case ".csv":
		return readDelimited(path, ',')
	case ".tsv":
		return readDelimited(path, '\t')
	case ".jsonl", ".ndjson":
		return r.readLines(path), nil
	case ".json":
		return readJSON(path)
	default:
		return readText(path)
	}
}

// openFile opens path and wraps it in the decompressor its extension names.
func openFile(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open file").WithDetail("path", path)
	}
	alg, _ := compression.Detect(path)
	dec, err := compression.NewReader(file, alg)
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decompress file").WithDetail("path", path)
	}
	return fileReader{ReadCloser: dec, file: file}, nil
}

type fileReader struct {
	io.ReadCloser
	file *os.File
}

func (f fileReader) Close() error {
	err := f.ReadCloser.Close()
	if ferr := f.file.Close(); err == nil {
		err = ferr
	}
	return err
}

func readFile(path string) ([]byte, error) {
	rc, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read file").WithDetail("path", path)
	}
	return data, nil
}

func readJSON(path string) (source.Unit, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	v, err := json.DecodeValue(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid JSON").WithDetail("path", path)
	}
	return &source.Opaque{Value: v}, nil
}

func readText(path string) (source.Unit, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)
	lines := strings.Count(content, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		lines++
	}
	return &source.Opaque{Value: map[string]any{
		"content":    content,
		"line_count": int64(lines),
		"total_size": int64(len(data)),
	}}, nil
}

// Expand returns path itself when it is a file, or every regular file beneath
// it when it is a directory, in lexical order.
func Expand(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to stat path").WithDetail("path", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped.
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to walk directory").WithDetail("path", path)
	}
	return files, nil
}
