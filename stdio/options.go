package stdio

import (
	"io"
	"log/slog"
)

// Option customizes the transport opened by Open.
type Option func(*config)

type config struct {
	r io.Reader
	w io.Writer
	l *slog.Logger
}

// WithIO sets the reader and writer for the transport.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(c *config) {
		if r != nil {
			c.r = r
		}
		if w != nil {
			c.w = w
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.l = l
		}
	}
}
