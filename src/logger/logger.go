package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var Logger zerolog.Logger
var logFile *os.File

// InitLogger configures the global zerolog logger from the environment:
// LOG_LEVEL, LOG_FORMAT (pretty for console output) and LOG_FILE (optional
// additional sink, "none" disables).
func InitLogger() {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writers []io.Writer
	if os.Getenv("LOG_FORMAT") == "pretty" {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		writers = append(writers, os.Stdout)
	}

	logFilePath := os.Getenv("LOG_FILE")
	logFile = nil
	if logFilePath != "" && logFilePath != "none" && logFilePath != "disabled" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.Error().Err(err).Msg("Failed to open log file, using stdout only")
		} else {
			logFile = f
			writers = append(writers, f)
		}
	}

	Logger = zerolog.New(io.MultiWriter(writers...)).With().
		Timestamp().
		Logger()

	log.Logger = Logger

	Logger.Info().
		Str("log_level", level.String()).
		Bool("file_sink", logFile != nil).
		Msg("Logger initialized")
}

func CloseLogger() {
	if logFile != nil {
		_ = logFile.Sync()
		_ = logFile.Close()
		logFile = nil
	}
}

func GetLogger() zerolog.Logger {
	return Logger
}
