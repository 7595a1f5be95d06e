package lib

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the zerolog logger of the command line tools. Without a log
// file it writes human readable lines to stderr, keeping stdout for results.
func Logger(logFilePath string, level zerolog.Level) (zerolog.Logger, io.Closer, error) {
	if logFilePath == "" {
		target := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		return zerolog.New(target).Level(level).With().Timestamp().Logger(), io.NopCloser(nil), nil
	}

	path := logFilePath
	if filepath.Ext(logFilePath) == "" {
		path = logFilePath + time.Now().Format("-2006-01-02") + ".log"
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	return zerolog.New(file).Level(level).With().Timestamp().Logger(), file, nil
}
