// Package logging configures the process-wide zerolog logger.
//
// The engine logs compile and execute phases at debug level; the CLI stays
// quiet unless REDLINE_LOG_LEVEL lowers the threshold. Configuration happens
// once per process.
package logging

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment overrides.
const (
	EnvLogLevel   = "REDLINE_LOG_LEVEL"
	EnvLogNoColor = "REDLINE_LOG_NOCOLOR"
)

// Profile selects a default logging configuration.
type Profile int

const (
	// ProfileRuntime is the default for the CLI: warnings and above.
	ProfileRuntime Profile = iota

	// ProfileTest enables debug output for test runs.
	ProfileTest
)

var configureOnce sync.Once

// ConfigureRuntime configures logging with the runtime profile.
func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

// ConfigureTests configures logging with the test profile.
func ConfigureTests() {
	Configure(ProfileTest)
}

// Configure initializes the global logger for the given profile. Only the
// first call has any effect.
func Configure(profile Profile) {
	configureOnce.Do(func() {
		level := zerolog.WarnLevel
		if profile == ProfileTest {
			level = zerolog.DebugLevel
		}
		if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
			level = lvl
		}

		noColor := false
		if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
			noColor = v
		}

		writer := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColor}
		log.Logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
	})
}

// Engine returns the logger used by the plan engine packages.
func Engine() *zerolog.Logger {
	l := log.With().Str("component", "engine").Logger()
	return &l
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "off", "disabled":
		return zerolog.Disabled, true
	default:
		return zerolog.NoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
