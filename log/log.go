package log

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	FormatJson = "json"
	FormatText = "text"
)

var defaultLogger = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// New 初始化默认日志，level: debug/info/warn/error，format: text/json
func New(strLevel, format string, outWriter ...io.Writer) error {
	level, err := logrus.ParseLevel(strings.ToLower(strLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	defaultLogger.SetLevel(level)
	if format == FormatJson {
		defaultLogger.SetFormatter(&logrus.JSONFormatter{})
	}
	if len(outWriter) > 0 {
		writers := append([]io.Writer{os.Stdout}, outWriter...)
		defaultLogger.SetOutput(io.MultiWriter(writers...))
	}
	return nil
}

// SetLogLevel 运行时调整日志级别
func SetLogLevel(strLevel string) {
	if level, err := logrus.ParseLevel(strings.ToLower(strLevel)); err == nil {
		defaultLogger.SetLevel(level)
	}
}

// Debug print
func Debug(format string, a ...interface{}) {
	defaultLogger.Debugf(format, a...)
}

// Info print
func Info(format string, a ...interface{}) {
	defaultLogger.Infof(format, a...)
}

// Warn print
func Warn(format string, a ...interface{}) {
	defaultLogger.Warnf(format, a...)
}

// Error print
func Error(format string, a ...interface{}) {
	defaultLogger.Errorf(format, a...)
}

// Fatal print and exit
func Fatal(format string, a ...interface{}) {
	defaultLogger.Fatalf(format, a...)
}

func Fatalf(format string, a ...interface{}) {
	defaultLogger.Fatalf(format, a...)
}
