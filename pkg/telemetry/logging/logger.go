// Package logging configures structured logging for the gateway. All
// components log through log/slog; this package builds the handler and
// masks credentials before they reach the output.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options controls handler construction.
type Options struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string

	// Format is the output format ("json" or "text").
	Format string

	// Writer is the output destination. Defaults to os.Stderr.
	Writer io.Writer
}

// New builds a slog.Logger from the options. Attribute values whose key
// suggests a credential are masked by the handler so a stray log call
// can never leak a full API key.
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	hopts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: maskCredentialAttr,
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "json":
		handler = slog.NewJSONHandler(writer, hopts)
	case "text":
		handler = slog.NewTextHandler(writer, hopts)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", opts.Format)
	}

	return slog.New(handler), nil
}

// ParseLevel maps a level name to its slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", name)
	}
}

func maskCredentialAttr(_ []string, attr slog.Attr) slog.Attr {
	if !credentialKey(attr.Key) {
		return attr
	}
	if attr.Value.Kind() == slog.KindString {
		attr.Value = slog.StringValue(Mask(attr.Value.String()))
	}
	return attr
}

func credentialKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "api_key") ||
		strings.Contains(k, "apikey") ||
		strings.Contains(k, "credential") ||
		strings.Contains(k, "token") ||
		strings.Contains(k, "secret") ||
		k == "authorization"
}
