package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateBackend(cfg, ve)
	validateStream(cfg, ve)
	validateStore(cfg, ve)
	validateRender(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateBackend(cfg *Config, ve *ValidationError) {
	b := cfg.Backend
	if b.BaseURL == "" {
		ve.Add("backend.base_url must not be empty")
	} else if u, err := url.Parse(b.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		ve.Add("backend.base_url %q must be an absolute http(s) URL", b.BaseURL)
	}
	if b.ConnTimeout < 0 {
		ve.Add("backend.conn_timeout must be >= 0")
	}
	if b.RespTimeout < 0 {
		ve.Add("backend.resp_timeout must be >= 0")
	}
	if b.RateLimit.PerSecond < 0 {
		ve.Add("backend.rate_limit.per_second must be >= 0")
	}
	if b.RateLimit.PerSecond > 0 && b.RateLimit.Burst <= 0 {
		ve.Add("backend.rate_limit.burst must be > 0 when rate limiting is enabled")
	}
	if b.Breaker.Enabled {
		if b.Breaker.Timeout < 0 {
			ve.Add("backend.circuit_breaker.timeout must be >= 0")
		}
		if b.Breaker.Interval < 0 {
			ve.Add("backend.circuit_breaker.interval must be >= 0")
		}
	}
}

var validTransports = map[string]bool{
	"auto":      true,
	"sse":       true,
	"websocket": true,
}

func validateStream(cfg *Config, ve *ValidationError) {
	if !validTransports[cfg.Stream.Transport] {
		ve.Add("stream.transport %q is invalid (want auto, sse or websocket)", cfg.Stream.Transport)
	}
	if cfg.Stream.ReadLimit < 0 {
		ve.Add("stream.read_limit must be >= 0")
	}
}

func validateStore(cfg *Config, ve *ValidationError) {
	switch cfg.Store.Driver {
	case "memory":
	case "sqlite":
		if cfg.Store.Path == "" {
			ve.Add("store.path must not be empty when store.driver is sqlite")
		}
	default:
		ve.Add("store.driver %q is invalid (want memory or sqlite)", cfg.Store.Driver)
	}
}

func validateRender(cfg *Config, ve *ValidationError) {
	if cfg.Render.Width < 0 {
		ve.Add("render.width must be >= 0")
	}
	for tool, path := range cfg.Render.ResultSchemas {
		if tool == "" {
			ve.Add("render.result_schemas has an empty tool name")
		}
		if path == "" {
			ve.Add("render.result_schemas[%s] must name a schema file", tool)
		}
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (want debug, info, warn or error)", cfg.Logger.Level)
	}
	if cfg.Logger.Format != "text" && cfg.Logger.Format != "json" {
		ve.Add("logger.format %q is invalid (want text or json)", cfg.Logger.Format)
	}
	if cfg.Logger.Output == "" {
		ve.Add("logger.output must not be empty")
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		ve.Add("tracer.exporter %q is invalid (want stdout or noop)", cfg.Tracer.Exporter)
	}
}
