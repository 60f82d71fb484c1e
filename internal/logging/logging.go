// Package logging sets up the process-wide structured logger shared by
// every component.
package logging

import (
	"io"
	"os"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
)

// New builds the server's logger: nested-logrus-formatter's compact
// single-line rendering (component field first, keys hidden), writing to
// out (os.Stdout in production, a buffer in tests).
func New(level logrus.Level, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stdout
	}
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&nested.Formatter{
		HideKeys:    true,
		FieldsOrder: []string{"component"},
	})
	return logger
}

// For returns a logger scoped to one component, the way every internal/
// package's constructor takes a *logrus.Logger and immediately narrows it
// with WithField("component", ...).
func For(logger *logrus.Logger, component string) *logrus.Entry {
	return logger.WithField("component", component)
}
