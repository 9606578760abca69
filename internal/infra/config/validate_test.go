package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty base url", func(c *Config) { c.Backend.BaseURL = "" }, "backend.base_url must not be empty"},
		{"relative base url", func(c *Config) { c.Backend.BaseURL = "/api" }, "absolute http(s) URL"},
		{"ws base url", func(c *Config) { c.Backend.BaseURL = "ws://host/api" }, "absolute http(s) URL"},
		{"negative rate", func(c *Config) { c.Backend.RateLimit.PerSecond = -1 }, "per_second must be >= 0"},
		{"rate without burst", func(c *Config) { c.Backend.RateLimit.Burst = 0 }, "burst must be > 0"},
		{"transport", func(c *Config) { c.Stream.Transport = "grpc" }, `stream.transport "grpc"`},
		{"store driver", func(c *Config) { c.Store.Driver = "postgres" }, `store.driver "postgres"`},
		{"sqlite path", func(c *Config) { c.Store.Driver = "sqlite"; c.Store.Path = "" }, "store.path must not be empty"},
		{"render width", func(c *Config) { c.Render.Width = -1 }, "render.width"},
		{"schema path", func(c *Config) { c.Render.ResultSchemas = map[string]string{"lookup": ""} }, "render.result_schemas[lookup]"},
		{"log level", func(c *Config) { c.Logger.Level = "loud" }, `logger.level "loud"`},
		{"log format", func(c *Config) { c.Logger.Format = "xml" }, `logger.format "xml"`},
		{"tracer exporter", func(c *Config) { c.Tracer.Enabled = true; c.Tracer.Exporter = "jaeger" }, `tracer.exporter "jaeger"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestValidateAccumulates(t *testing.T) {
	cfg := Defaults()
	cfg.Backend.BaseURL = ""
	cfg.Stream.Transport = "x"
	cfg.Logger.Format = "y"

	err := Validate(cfg)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %T, want *ValidationError", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(ve.Errors), ve.Errors)
	}
}

func TestValidateDisabledTracerIgnoresExporter(t *testing.T) {
	cfg := Defaults()
	cfg.Tracer.Exporter = "jaeger"
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
