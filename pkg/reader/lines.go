package reader

import (
	"bufio"
	"bytes"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/json"
	"github.com/ajitpratap0/nebula-ingest/pkg/source"
)

const defaultMaxLineBytes = 16 << 20

// readLines returns a stream that opens the file on first iteration and yields
// one decoded record per non-blank line. A malformed line yields an error and
// iteration continues with the next line.
func (r *FileReader) readLines(path string) *source.Stream {
	maxLine := r.MaxLineBytes
	if maxLine <= 0 {
		maxLine = defaultMaxLineBytes
	}

	return source.NewStream(func(yield func(any, error) bool) {
		file, err := openFile(path)
		if err != nil {
			yield(nil, err)
			return
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			v, err := json.DecodeValue(line)
			if err != nil {
				r.logger.Debug("malformed record", zap.String("path", path), zap.Int("line", lineNo), zap.Error(err))
				if !yield(nil, errors.Wrap(err, errors.ErrorTypeData, "malformed record").WithDetail("line", lineNo)) {
					return
				}
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read file").WithDetail("path", path))
		}
	})
}
