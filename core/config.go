// Package core wires the catalog, compiler stages, and synthesized schema
// into one reloadable engine: the process boundary between the pure,
// per-request compiler packages (catalog, qplan, sqlgen, assemble, mutate,
// schema) and a live *sql.DB (spec.md §5).
package core

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is BifrostQL's full runtime configuration, loaded by viper from a
// config file plus environment variable overrides (BFQL_<KEY>, following
// the teacher's underscore-for-nesting convention) and decoded with
// mapstructure tags matching every key spec.md §6 recognizes.
type Config struct {
	ConnectionString string `mapstructure:"connectionString"`
	Dialect          string `mapstructure:"dialect"`
	Path             string `mapstructure:"path"`
	PlaygroundPath   string `mapstructure:"playgroundPath"`
	DefaultLimit     int    `mapstructure:"defaultLimit"`

	// Metadata is the ordered list of `<schemaPat>.<tablePat>[.<colPat>]
	// [|predicate] { key: value; ... }` directive lines (spec.md §6),
	// applied in order by catalog.ApplyDirectives.
	Metadata []string `mapstructure:"metadata"`

	// AuditUserKey names the entry read out of the request's user context
	// map when populating audit columns (spec.md §6 "audit-user-key").
	AuditUserKey string `mapstructure:"audit-user-key"`

	Auth AuthConfig `mapstructure:"auth"`

	// Schemas restricts catalog discovery to these schema names; empty
	// defers to each catalog.Loader's own dialect-appropriate default.
	Schemas []string `mapstructure:"schemas"`

	// RequestTimeout is the single deadline covering plan + execute +
	// assemble for one request (spec.md §5 "Timeouts").
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`

	// LogSQL gates whether compiled SQL text is attached to Debug logs and
	// to DB_ERROR messages returned to local callers (spec.md §7).
	LogSQL bool `mapstructure:"logSql"`
}

// AuthConfig is spec.md §6's `auth.enableAuth` key, nested the way the
// teacher nests its own config sub-sections.
type AuthConfig struct {
	EnableAuth bool `mapstructure:"enableAuth"`
}

// DefaultConfig returns a Config with spec.md's documented defaults
// (`defaultLimit` 100, `path` "/graphql") filled in; LoadConfig merges a
// file and environment overrides on top of this.
func DefaultConfig() Config {
	return Config{
		Dialect:        "postgres",
		Path:           "/graphql",
		PlaygroundPath: "/playground",
		DefaultLimit:   100,
		AuditUserKey:   "user_id",
		RequestTimeout: 30 * time.Second,
	}
}

// LoadConfig reads configPath (if non-empty) through viper, falling back to
// DefaultConfig's values for anything unset, and applies BFQL_-prefixed
// environment variable overrides (teacher's own env-binding convention,
// e.g. BFQL_DIALECT, BFQL_CONNECTION_STRING).
func LoadConfig(configPath string) (Config, error) {
	v := viper.New()
	def := DefaultConfig()
	v.SetDefault("dialect", def.Dialect)
	v.SetDefault("path", def.Path)
	v.SetDefault("playgroundPath", def.PlaygroundPath)
	v.SetDefault("defaultLimit", def.DefaultLimit)
	v.SetDefault("audit-user-key", def.AuditUserKey)
	v.SetDefault("requestTimeout", def.RequestTimeout)

	v.SetEnvPrefix("BFQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("connectionString", "BFQL_CONNECTION_STRING")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
