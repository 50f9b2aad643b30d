package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	mu  sync.Mutex
	log = newDiscard()
)

func newDiscard() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	l.Formatter = jsonFormatter()
	l.Level = logrus.InfoLevel
	return l
}

func jsonFormatter() *logrus.JSONFormatter {
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
		},
	}
}

// Init configures JSONL logging into log/app.log.
func Init(baseDir string) error {
	logDir := filepath.Join(baseDir, "log")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(logDir, "app.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	SetOutput(f)
	return nil
}

// SetOutput redirects log lines, e.g. to stderr for command line tools.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log.SetOutput(w)
}

func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	if enabled {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

func Debug(msg string, fields map[string]any) {
	entry(fields).Debug(msg)
}

func Info(msg string, fields map[string]any) {
	entry(fields).Info(msg)
}

func Warn(msg string, fields map[string]any) {
	entry(fields).Warn(msg)
}

func Error(msg string, fields map[string]any) {
	entry(fields).Error(msg)
}

func entry(fields map[string]any) *logrus.Entry {
	mu.Lock()
	l := log
	mu.Unlock()
	return l.WithFields(logrus.Fields(fields))
}
