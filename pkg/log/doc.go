// Package log provides structured logging for podium components.
//
// Loggers are constructed explicitly and passed by dependency injection;
// there is no global default. Fields are strongly typed:
//
//	logger := log.NewLogger(log.WithLevel(log.InfoLevel))
//	logger = logger.With(log.Component("publisher"))
//	logger.Info("batch published", log.Int("events", n), log.Uint64("last_seq", seq))
//
// Output format is text (human) or JSON (machines), selected via
// WithFormatter. RedirectStdLog routes stdlib log output (Pebble uses it)
// through a Logger so everything lands in one stream.
package log
