package log

import (
	"bytes"
	stdlog "log"
)

// stdlogWriter adapts a Logger into an io.Writer that stdlib's log package
// can write formatted lines into.
type stdlogWriter struct {
	logger Logger
}

func (w stdlogWriter) Write(p []byte) (int, error) {
	w.logger.Info(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}

// RedirectStdLog points the standard library's default logger at logger, so
// diagnostics written by dependencies that only know about log.Printf (such
// as Pebble) flow through the same pipeline as the rest of the process.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdlogWriter{logger: logger})
}
