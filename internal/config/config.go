package config

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/meikuraledutech/paramgraph"
)

// Config represents the server configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Postgres PostgresConfig    `yaml:"postgres"`
	Compiler CompilerConfig    `yaml:"compiler"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	return c.Compiler.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel string     `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.Required, validation.By(validLogLevel)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// Level returns the parsed log level.
func (c *ApplicationConfig) Level() hclog.Level {
	return hclog.LevelFromString(c.LogLevel)
}

func validLogLevel(value any) error {
	s, _ := value.(string)
	if hclog.LevelFromString(s) == hclog.NoLevel {
		return fmt.Errorf("unknown log level %q", s)
	}
	return nil
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// PostgresConfig holds the database connection. An empty URL selects the
// in-memory store.
type PostgresConfig struct {
	URL string `yaml:"url"`
}

// Enabled reports whether a database URL is configured.
func (c *PostgresConfig) Enabled() bool { return c.URL != "" }

// CompilerConfig holds compiler session settings.
type CompilerConfig struct {
	// ExtraConstants are added to the built-in engine constants.
	ExtraConstants []ConstantConfig `yaml:"extra_constants"`
}

// Validate validates the compiler configuration.
func (c *CompilerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ExtraConstants),
	)
}

// Constants builds the session constant table.
func (c *CompilerConfig) Constants() *paramgraph.ConstantTable {
	table := paramgraph.DefaultEngineConstants()
	if len(c.ExtraConstants) == 0 {
		return table
	}
	extra := make([]paramgraph.Variable, 0, len(c.ExtraConstants))
	for _, cc := range c.ExtraConstants {
		t, _ := paramgraph.ParseTypeDef(cc.Type)
		extra = append(extra, paramgraph.NewVariable(t, cc.Name))
	}
	return table.With(extra...)
}

// ConstantConfig declares one extra engine constant.
type ConstantConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Validate validates the constant declaration.
func (c ConstantConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Type, validation.Required, validation.By(knownType)),
	)
}

func knownType(value any) error {
	s, _ := value.(string)
	if _, ok := paramgraph.ParseTypeDef(s); !ok {
		return fmt.Errorf("unknown type %q", s)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: "info",
			HTTP: HTTPConfig{
				Port: 3000,
			},
		},
	}
}
