package mqtt

import (
	"fmt"
	"strings"

	"github.com/autopeer-io/geotrack/pkg/log"
)

// pahoLogger implements the paho log.Logger interface on top of pkg/log.
type pahoLogger struct {
	prefix string
	err    bool
}

func (l pahoLogger) Println(v ...any) {
	l.emit(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l pahoLogger) Printf(format string, v ...any) {
	l.emit(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}

func (l pahoLogger) emit(msg string) {
	if l.err {
		log.Warn(msg, "component", l.prefix)
		return
	}
	log.Debug(msg, "component", l.prefix)
}
