// Package config defines the fichegen pipeline configuration and its
// validation. The config is a JSON file; viper loads it so individual
// settings can be overridden from the environment (FICHEGEN_ prefix).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Pipeline is the top-level configuration for one generation run.
type Pipeline struct {
	// Job names the run for metrics tagging and the ledger.
	Job string `json:"job" mapstructure:"job"`

	Template  Template  `json:"template" mapstructure:"template"`
	Placement Placement `json:"placement" mapstructure:"placement"`
	Output    Output    `json:"output" mapstructure:"output"`
	Runtime   Runtime   `json:"runtime" mapstructure:"runtime"`
	Storage   Storage   `json:"storage" mapstructure:"storage"`
	Metrics   Metrics   `json:"metrics" mapstructure:"metrics"`
}

type Template struct {
	// Path of the immutable fiche template workbook.
	Path string `json:"path" mapstructure:"path"`
	// Sheet overrides the destination sheet name; empty keeps the
	// placement default.
	Sheet string `json:"sheet" mapstructure:"sheet"`
}

type Placement struct {
	// Path of an optional JSON placement override (see fiche.LoadPlacement).
	Path string `json:"path" mapstructure:"path"`
}

type Output struct {
	// Dir receives one generated workbook per source file.
	Dir string `json:"dir" mapstructure:"dir"`
}

// Runtime controls batch execution behavior.
type Runtime struct {
	// Workers is the number of source files processed concurrently.
	// Zero or negative means 1.
	Workers int `json:"workers" mapstructure:"workers"`
}

type Storage struct {
	// Kind selects the run-ledger backend: "sqlite" | "postgres" | "mssql".
	// Empty disables the ledger.
	Kind string `json:"kind" mapstructure:"kind"`
	DSN  string `json:"dsn" mapstructure:"dsn"`
}

type Metrics struct {
	// Backend: "datadog" | "none". Empty means none.
	Backend      string   `json:"backend" mapstructure:"backend"`
	Tags         []string `json:"tags" mapstructure:"tags"`
	FlushSeconds int      `json:"flush_seconds" mapstructure:"flush_seconds"`
}

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding, addressed by a dotted config path.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// Load reads the pipeline config at path. Environment variables override
// file values: FICHEGEN_STORAGE_DSN overrides storage.dsn, and so on.
func Load(path string) (Pipeline, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("FICHEGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Pipeline{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var p Pipeline
	if err := v.Unmarshal(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return p, nil
}

// Validate checks p and returns all findings; callers decide whether any
// Severity is fatal. An empty slice means the config is usable as-is.
func Validate(p Pipeline) []Issue {
	var issues []Issue

	errf := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, args...)})
	}
	warnf := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf(format, args...)})
	}

	if p.Template.Path == "" {
		errf("template.path", "template workbook path is required")
	}
	if p.Output.Dir == "" {
		errf("output.dir", "output directory is required")
	}
	if p.Runtime.Workers < 0 {
		errf("runtime.workers", "must not be negative, got %d", p.Runtime.Workers)
	}

	switch p.Storage.Kind {
	case "", "sqlite", "postgres", "mssql":
	default:
		errf("storage.kind", "unknown ledger backend %q", p.Storage.Kind)
	}
	if p.Storage.Kind != "" && p.Storage.DSN == "" {
		errf("storage.dsn", "dsn is required when storage.kind is set")
	}
	if p.Storage.Kind == "" && p.Storage.DSN != "" {
		warnf("storage.dsn", "dsn set but storage.kind empty; ledger disabled")
	}

	switch p.Metrics.Backend {
	case "", "none", "datadog":
	default:
		errf("metrics.backend", "unknown metrics backend %q", p.Metrics.Backend)
	}
	if p.Metrics.FlushSeconds < 0 {
		errf("metrics.flush_seconds", "must not be negative, got %d", p.Metrics.FlushSeconds)
	}

	if p.Job == "" {
		warnf("job", "job name empty; metrics and ledger rows will use %q", "fichegen")
	}

	return issues
}

// HasError reports whether any issue is SeverityError.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
