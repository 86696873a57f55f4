package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogging configures the global zerolog logger: human readable output
// on stderr, plus a rotated JSON file when c.File is set. The returned
// closer flushes the file.
func SetupLogging(c LogConfig) (io.Closer, error) {
	level := zerolog.InfoLevel
	if c.Level != "" {
		l, err := zerolog.ParseLevel(c.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "log level %q", c.Level)
		}
		level = l
	}

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
		TimeFormat: "15:04:05.000",
	}
	writers := []io.Writer{console}

	var closer io.Closer = nopCloser{}
	if c.File != "" {
		size := c.MaxSizeMB
		if size <= 0 {
			size = 10
		}
		file := &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    size,
			MaxBackups: 3,
			MaxAge:     28,
		}
		writers = append(writers, file)
		closer = file
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return closer, nil
}
