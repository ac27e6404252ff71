// cmd/checkmodels/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"soyeon/config"
	"soyeon/logger"
	"soyeon/services"
)

// Lists the models the configured API key can use for chat.
func main() {
	configPath := flag.String("config", "", "path to config file")
	envFile := flag.String("env", ".env", "path to .env file")
	all := flag.Bool("all", false, "also list models that cannot chat")
	flag.Parse()

	log := logger.New(logger.Config{Level: "info", Pretty: true})

	cfg, err := config.NewLoader(*configPath, *envFile).Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Model.APIKey == "" {
		log.Fatal().Err(config.ErrMissingAPIKey).Msg("check .env or the secrets file")
	}

	model, err := services.NewChatModel(services.ModelOptions{
		Provider: cfg.Model.Provider,
		Name:     cfg.Model.Name,
		APIKey:   cfg.Model.APIKey,
		BaseURL:  cfg.Model.BaseURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create model")
	}

	lister, ok := model.(services.ModelLister)
	if !ok {
		log.Fatal().Str("provider", cfg.Model.Provider).Msg("provider cannot list models")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list models")
	}

	found := 0
	for _, m := range models {
		if !*all && !m.SupportsChat() {
			continue
		}
		fmt.Fprintln(os.Stdout, m.Name)
		found++
	}
	if found == 0 {
		log.Warn().Msg("no chat-capable models found; check the API key permissions")
		os.Exit(1)
	}
}
