// Package envconfig reads engine configuration from the environment.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Var returns an environment variable stripped of surrounding quotes and spaces.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// BoolWithDefault returns a reader for a boolean variable.
// Unparseable non-empty values read as true.
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool returns a reader for a boolean variable defaulting to false.
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// String returns a reader for a string variable.
func String(k string) func() string {
	return func() string {
		return Var(k)
	}
}

// Uint returns a reader for an unsigned integer variable.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

var (
	// Debug enables debug introspection when compiling backend graphs.
	Debug = Bool("LAYERGRAPH_DEBUG")
	// NumThreads overrides the CPU worker count. Zero means detect.
	NumThreads = Uint("LAYERGRAPH_NUM_THREADS", 0)
	// Device is the default device kind for the CLI ("cpu", "gpu" or "any").
	Device = String("LAYERGRAPH_DEVICE")
)

// LogLevel maps LAYERGRAPH_DEBUG to a slog level.
// "1"/"true" selects debug; other integers select slog.Level(-4*n).
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("LAYERGRAPH_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}
	return level
}

// EnvVar describes one configuration variable.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every configuration variable with its current value.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"LAYERGRAPH_DEBUG":       {"LAYERGRAPH_DEBUG", LogLevel(), "Show debug logs and backend graph introspection (e.g. LAYERGRAPH_DEBUG=1)"},
		"LAYERGRAPH_NUM_THREADS": {"LAYERGRAPH_NUM_THREADS", NumThreads(), "CPU worker count (default: logical cores)"},
		"LAYERGRAPH_DEVICE":      {"LAYERGRAPH_DEVICE", Device(), "Default device kind for the CLI: cpu, gpu or any"},
	}
}

// Values returns every configuration value formatted as a string.
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
