// Package config loads and validates the sync service configuration.
//
// Configuration is YAML on disk, validated against an embedded CUE schema
// before use. Window sizes are deliberately tunable: the right incremental
// and reconciliation widths depend on the provider's observed event-delivery
// latency, not on constants.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Config is the full service configuration.
type Config struct {
	Provider        ProviderConfig `yaml:"provider" json:"provider"`
	Database        DatabaseConfig `yaml:"database" json:"database"`
	Sync            SyncConfig     `yaml:"sync" json:"sync"`
	CredentialsFile string         `yaml:"credentials_file" json:"credentials_file"`
}

// ProviderConfig describes the upstream fulfillment API.
type ProviderConfig struct {
	BaseURL           string `yaml:"base_url" json:"base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
	MaxPages          int    `yaml:"max_pages" json:"max_pages"`
	UserAgent         string `yaml:"user_agent" json:"user_agent,omitempty"`
}

// DatabaseConfig selects the mirror database.
type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// SyncConfig holds the scheduling-policy knobs.
type SyncConfig struct {
	IncrementalMinutes       int `yaml:"incremental_minutes" json:"incremental_minutes"`
	IncrementalMarginMinutes int `yaml:"incremental_margin_minutes" json:"incremental_margin_minutes"`
	ReconcileDays            int `yaml:"reconcile_days" json:"reconcile_days"`
	BackfillParentDays       int `yaml:"backfill_parent_days" json:"backfill_parent_days"`
	BackfillMaxParents       int `yaml:"backfill_max_parents" json:"backfill_max_parents"`
	TimelineMaxShipments     int `yaml:"timeline_max_shipments" json:"timeline_max_shipments"`
	TimelineMaxAgeDays       int `yaml:"timeline_max_age_days" json:"timeline_max_age_days"`
}

// Default returns a configuration with every knob at its default. The window
// widths match what has worked in production against the provider but should
// be re-validated against observed upstream latency.
func Default() Config {
	return Config{
		Provider: ProviderConfig{
			RequestsPerMinute: 150,
			MaxPages:          50,
			UserAgent:         "fulfillsyncd",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "fulfillsync.db",
		},
		Sync: SyncConfig{
			IncrementalMinutes:       5,
			IncrementalMarginMinutes: 5,
			ReconcileDays:            20,
			BackfillParentDays:       7,
			BackfillMaxParents:       50,
			TimelineMaxShipments:     100,
			TimelineMaxAgeDays:       45,
		},
	}
}

// Load reads the YAML file at path, applies defaults for omitted fields,
// honors the DATABASE_DSN environment override, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate unifies the configuration with the embedded CUE schema and
// reports the first constraint violation.
func (c Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return fmt.Errorf("config schema missing #Config definition")
	}

	unified := def.Unify(ctx.Encode(c))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
