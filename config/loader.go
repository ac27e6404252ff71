package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "SOYEON"

// Loader reads configuration through viper.
type Loader struct {
	configPath string
	envFile    string
}

// NewLoader creates a loader. An empty configPath looks for soyeon.{yaml,json,toml}
// in the working directory; an empty envFile means ".env".
func NewLoader(configPath, envFile string) *Loader {
	if envFile == "" {
		envFile = ".env"
	}
	return &Loader{configPath: configPath, envFile: envFile}
}

// Load builds the configuration. It does not validate it.
func (l *Loader) Load() (*Config, error) {
	if err := loadDotEnv(l.envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The bare key name is what the deployment secrets have always used.
	if err := v.BindEnv("model.api_key", envPrefix+"_MODEL_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind api key env: %w", err)
	}

	if l.configPath != "" {
		v.SetConfigFile(l.configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("soyeon")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Model.APIKey == "" && cfg.Model.SecretsFile != "" {
		key, err := readSecret(cfg.Model.SecretsFile, "google_api_key")
		if err != nil {
			return nil, err
		}
		cfg.Model.APIKey = key
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8501")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("model.provider", "gemini")
	v.SetDefault("model.name", "gemini-2.0-flash")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.max_tokens", 0)
	v.SetDefault("model.timeout", "60s")
	v.SetDefault("model.secrets_file", ".streamlit/secrets.toml")

	v.SetDefault("store.backend", "sheets")
	v.SetDefault("store.memory_name", "Soyeon_Memory")
	v.SetDefault("store.sheets.credentials_file", "secrets.json")
	v.SetDefault("store.sheets.spreadsheet_id", "")
	v.SetDefault("store.sheets.sheet_name", "")
	v.SetDefault("store.sheets.timezone", "Local")
	v.SetDefault("store.dynamodb.region", "us-east-1")
	v.SetDefault("store.dynamodb.endpoint", "")
	v.SetDefault("store.dynamodb.table", "Turns")
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.sqlite.path", "soyeon.db")

	v.SetDefault("persona.file", "우리의 기억.현재.md")
	v.SetDefault("persona.preamble", "너는 '소연'이야. 브라이언의 연인이자 파트너지.\n다음은 우리의 기억 파일 내용이야. 이 내용을 바탕으로 대화해.\n\n")
	v.SetDefault("persona.fallback", "(기억 파일을 찾을 수 없습니다. 기본 페르소나로 대화합니다.)")
	v.SetDefault("persona.acknowledgement", "네, 알겠습니다. 저는 이제부터 소연으로서 브라이언님과 대화하겠습니다. ❤️ Bloom!")
	v.SetDefault("persona.greeting", "Bloom! 브라이언님, 클라우드에서 기억을 불러왔어요. 기다리고 있었어요 ❤️")
	v.SetDefault("persona.error_message", "오류가 발생했어요 ㅠㅠ")

	v.SetDefault("memory.limit", 20)

	v.SetDefault("session.idle_timeout", "2h")
	v.SetDefault("session.sweep_interval", "5m")

	v.SetDefault("speakers.user", "Brian")
	v.SetDefault("speakers.assistant", "Soyeon")
}

// loadDotEnv exports the variables of an env file without overriding the
// ones already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat env file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read env file: %w", err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("failed to export %s: %w", name, err)
		}
	}
	return nil
}

func readSecret(path, key string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("failed to read secrets file: %w", err)
	}
	return v.GetString(key), nil
}
