package log

import (
	stdlog "log"
	"strings"
)

// RedirectStdLog routes the standard library's default logger through the
// provided Logger at InfoLevel. Pebble and net/http write there.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdlogWriter{logger: logger})
}

type stdlogWriter struct {
	logger Logger
}

func (w stdlogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		w.logger.Info(msg, Component("stdlog"))
	}
	return len(p), nil
}
