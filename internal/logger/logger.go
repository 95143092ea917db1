// Package logger is the service-wide leveled logger. Every helper takes a
// message followed by alternating key/value pairs.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2/log"
)

// Setup points the logger at stdout, plus file when one is given, and applies
// the level. The returned closer releases the file.
func Setup(level, file string) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), os.ModePerm); err != nil {
			return nil, fmt.Errorf("could not create log directory: %w", err)
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closer = f
	}

	SetOutput(out)
	SetLevel(level)
	return closer, nil
}

func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// SetLevel accepts debug, info, warn or error; anything else means info.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(log.LevelDebug)
	case "warn", "warning":
		log.SetLevel(log.LevelWarn)
	case "error":
		log.SetLevel(log.LevelError)
	default:
		log.SetLevel(log.LevelInfo)
	}
}

func Success(message string, keysAndValues ...interface{}) {
	log.Infow("✅ "+message, keysAndValues...)
}

func Info(message string, keysAndValues ...interface{}) {
	log.Infow(message, keysAndValues...)
}

func Warning(message string, keysAndValues ...interface{}) {
	log.Warnw(message, keysAndValues...)
}

func Debug(message string, keysAndValues ...interface{}) {
	log.Debugw(message, keysAndValues...)
}

func Error(message string, err error, keysAndValues ...interface{}) {
	if err != nil {
		keysAndValues = append(keysAndValues, "error", err.Error())
	}
	log.Errorw("❌ "+message, keysAndValues...)
}

func Fatal(message string, err error) {
	if err != nil {
		message += ": " + err.Error()
	}
	log.Fatal("💥 " + message)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
