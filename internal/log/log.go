package log

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Configure sets the global log level and output format.
// Supported formats: "console" (default) and "json".
func Configure(logLevel, format string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	if strings.ToLower(format) == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		formatter := new(logrus.TextFormatter)
		formatter.TimestampFormat = "15:04:05"
		formatter.FullTimestamp = true
		logrus.SetFormatter(formatter)
	}
}

func Debug(msg string, args ...any) { withFields(args).Debug(msg) }
func Info(msg string, args ...any)  { withFields(args).Info(msg) }
func Warn(msg string, args ...any)  { withFields(args).Warn(msg) }
func Error(msg string, args ...any) { withFields(args).Error(msg) }

// withFields folds alternating key/value arguments into structured fields.
func withFields(args []any) *logrus.Entry {
	if len(args) == 0 {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	fields := make(logrus.Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		fields[key] = args[i+1]
	}
	return logrus.StandardLogger().WithFields(fields)
}
