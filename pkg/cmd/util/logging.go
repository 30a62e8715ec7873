package util

import (
	"os"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/config"
)

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger creates the process logger from the log related config values
// and installs it as default.
func SetupLogger() (*log.Logger, error) {
	filter, err := log.WithFilterRules(config.LogFilter)
	if err != nil {
		return nil, err
	}
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			ParseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1),
			filter)
	default:
		logger = log.DevLogger(
			os.Stderr,
			ParseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1),
			filter)
	}
	log.ResetDefault(logger)
	return logger, nil
}
