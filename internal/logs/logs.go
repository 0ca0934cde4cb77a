package logs

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the process logger. When logFilePath is non-empty the log is
// appended there as JSON; withConsole additionally mirrors it to stdout in
// human-readable form.
func New(logFilePath string, withConsole bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var writers []io.Writer

	if logFilePath != "" {
		logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			log.Fatal().Err(err).Str("path", logFilePath).Msg("cannot open log file")
		}
		writers = append(writers, logFile)
	}

	if withConsole || len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	var writer io.Writer = writers[0]
	if len(writers) > 1 {
		writer = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(writer).With().
		Timestamp().
		Caller().
		Logger()

	log.Logger = logger

	return logger
}
