package config

import (
	"errors"
	"fmt"
	"time"

	"soyeon/models"
)

var ErrMissingAPIKey = errors.New("model API key is not set (GOOGLE_API_KEY or SOYEON_MODEL_API_KEY)")

// Config is the full server configuration. Values come from defaults, an
// optional config file, an optional .env file and the environment.
type Config struct {
	Server   ServerConfig    `json:"server" mapstructure:"server"`
	Log      LogConfig       `json:"log" mapstructure:"log"`
	Model    ModelConfig     `json:"model" mapstructure:"model"`
	Store    StoreConfig     `json:"store" mapstructure:"store"`
	Persona  PersonaConfig   `json:"persona" mapstructure:"persona"`
	Memory   MemoryConfig    `json:"memory" mapstructure:"memory"`
	Session  SessionConfig   `json:"session" mapstructure:"session"`
	Speakers models.Speakers `json:"speakers" mapstructure:"speakers"`
}

type ServerConfig struct {
	Port string `json:"port" mapstructure:"port"`
	Mode string `json:"mode" mapstructure:"mode"` // debug, release, test
}

type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Pretty bool   `json:"pretty" mapstructure:"pretty"`
}

type ModelConfig struct {
	Provider    string        `json:"provider" mapstructure:"provider"` // gemini, openai, anthropic
	Name        string        `json:"name" mapstructure:"name"`
	APIKey      string        `json:"-" mapstructure:"api_key"`
	BaseURL     string        `json:"base_url" mapstructure:"base_url"`
	MaxTokens   int           `json:"max_tokens" mapstructure:"max_tokens"` // 0 leaves the provider default
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	SecretsFile string        `json:"secrets_file" mapstructure:"secrets_file"`
}

type StoreConfig struct {
	Backend    string         `json:"backend" mapstructure:"backend"` // sheets, dynamodb, postgres, sqlite, memory
	MemoryName string         `json:"memory_name" mapstructure:"memory_name"`
	Sheets     SheetsConfig   `json:"sheets" mapstructure:"sheets"`
	DynamoDB   DynamoDBConfig `json:"dynamodb" mapstructure:"dynamodb"`
	Postgres   PostgresConfig `json:"postgres" mapstructure:"postgres"`
	SQLite     SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
}

type SheetsConfig struct {
	CredentialsFile string `json:"credentials_file" mapstructure:"credentials_file"`
	SpreadsheetID   string `json:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	SheetName       string `json:"sheet_name" mapstructure:"sheet_name"` // empty means the first sheet
	Timezone        string `json:"timezone" mapstructure:"timezone"`
}

type DynamoDBConfig struct {
	Region   string `json:"region" mapstructure:"region"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	Table    string `json:"table" mapstructure:"table"`
}

type PostgresConfig struct {
	DSN string `json:"-" mapstructure:"dsn"`
}

type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

type PersonaConfig struct {
	File            string `json:"file" mapstructure:"file"`
	Preamble        string `json:"preamble" mapstructure:"preamble"`
	Fallback        string `json:"fallback" mapstructure:"fallback"`
	Acknowledgement string `json:"acknowledgement" mapstructure:"acknowledgement"`
	Greeting        string `json:"greeting" mapstructure:"greeting"`
	ErrorMessage    string `json:"error_message" mapstructure:"error_message"`
}

type MemoryConfig struct {
	Limit int `json:"limit" mapstructure:"limit"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `json:"idle_timeout" mapstructure:"idle_timeout"` // 0 keeps sessions until deleted
	SweepInterval time.Duration `json:"sweep_interval" mapstructure:"sweep_interval"`
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Model.APIKey == "" {
		return ErrMissingAPIKey
	}
	switch c.Model.Provider {
	case "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported model provider: %q", c.Model.Provider)
	}
	switch c.Store.Backend {
	case "sheets", "dynamodb", "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported store backend: %q", c.Store.Backend)
	}
	if c.Memory.Limit < 0 {
		return fmt.Errorf("memory.limit must not be negative, got %d", c.Memory.Limit)
	}
	if c.Session.IdleTimeout < 0 {
		return fmt.Errorf("session.idle_timeout must not be negative, got %s", c.Session.IdleTimeout)
	}
	return nil
}
