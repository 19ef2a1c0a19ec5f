// Package logger bridges the stdout/stderr streams of child
// processes into the structured zap log.
package logger

import (
	"bytes"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LineWriter is an io.WriteCloser that splits its input into lines
// and emits each one as a zap entry. Partial lines are buffered until
// the trailing newline arrives; Close flushes whatever is left.
type LineWriter struct {
	log   *zap.Logger
	level zapcore.Level
	buf   []byte
}

// NewLineWriter returns a LineWriter logging at the given level.
func NewLineWriter(log *zap.Logger, level zapcore.Level) *LineWriter {
	return &LineWriter{
		log:   log,
		level: level,
	}
}

func (w *LineWriter) Write(buf0 []byte) (int, error) {
	buf := buf0
	for {
		i := bytes.IndexByte(buf, '\n')
		if i == -1 {
			w.buf = append(w.buf, buf...)
			return len(buf0), nil
		}
		line := buf[:i]
		if len(w.buf) > 0 {
			w.buf = append(w.buf, line...)
			line = w.buf
		}
		w.emit(line)
		w.buf = w.buf[:0]
		buf = buf[i+1:]
	}
}

// Close flushes any buffered partial line.
func (w *LineWriter) Close() error {
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = w.buf[:0]
	}
	return nil
}

func (w *LineWriter) emit(line []byte) {
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	if len(line) == 0 {
		return
	}
	if ce := w.log.Check(w.level, string(line)); ce != nil {
		ce.Write()
	}
}
