// Package awslog routes AWS SDK log output through pkg/log.
package awslog

import (
	"fmt"

	"github.com/aws/smithy-go/logging"

	"github.com/autopeer-io/geotrack/pkg/log"
)

// Logger implements logging.Logger on top of a pkg/log Logger.
type Logger struct {
	l log.Logger
}

var _ logging.Logger = (*Logger)(nil)

// New returns a Logger named "aws" under l. A nil l uses the global logger.
func New(l log.Logger) *Logger {
	if l == nil {
		l = log.Std()
	}
	return &Logger{l: l.WithName("aws")}
}

// Logf logs a formatted SDK message. Warnings go to Warn, everything else to Debug.
func (a *Logger) Logf(classification logging.Classification, format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	switch classification {
	case logging.Warn:
		a.l.Warn(msg)
	default:
		a.l.Debug(msg)
	}
}
