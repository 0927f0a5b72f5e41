package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

const (
	ansiReset = "\033[0m"
	ansiBlue  = "\033[34m"
)

var levelStyles = map[string]struct{ tag, color string }{
	"debug": {"DBG", "\033[36m"},
	"info":  {"INF", "\033[32m"},
	"warn":  {"WRN", "\033[33m"},
	"error": {"ERR", "\033[31m"},
	"fatal": {"FTL", "\033[35m"},
}

// consoleWriter renders "15:04:05 [MED][INF] message key:value". The
// service tag is the first three letters of the service name.
func consoleWriter(w io.Writer, serviceName string, noColor bool) zerolog.ConsoleWriter {
	prefix := ""
	if len(serviceName) >= 3 {
		prefix = paint("["+strings.ToUpper(serviceName[:3])+"]", ansiBlue, noColor)
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			level := fmt.Sprint(i)
			style, ok := levelStyles[level]
			if !ok {
				return prefix + "[" + strings.ToUpper(level) + "]"
			}
			return prefix + paint("["+style.tag+"]", style.color, noColor)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprint(i) + ":"
		},
	}
}

func paint(s, color string, noColor bool) string {
	if noColor {
		return s
	}
	return color + s + ansiReset
}
