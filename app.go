package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"soyeon/config"
	"soyeon/controllers"
	"soyeon/routes"
	"soyeon/services"
)

// buildServer wires the configured store, model and session services into a
// router. Idle sessions are swept until ctx is done.
func buildServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*gin.Engine, services.TurnStore, error) {
	store, err := services.NewTurnStore(ctx, cfg)
	if err != nil {
		// Chat keeps working without long-term memory.
		logger.Warn().Err(err).Str("backend", cfg.Store.Backend).Msg("memory store disabled")
		store = services.DisabledStore{Reason: err}
	}

	model, err := services.NewChatModel(services.ModelOptions{
		Provider:  cfg.Model.Provider,
		Name:      cfg.Model.Name,
		APIKey:    cfg.Model.APIKey,
		BaseURL:   cfg.Model.BaseURL,
		MaxTokens: cfg.Model.MaxTokens,
	})
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create model: %w", err)
	}

	initializer := services.NewInitializer(store, services.PersonaSettings{
		File:            cfg.Persona.File,
		Preamble:        cfg.Persona.Preamble,
		Fallback:        cfg.Persona.Fallback,
		Acknowledgement: cfg.Persona.Acknowledgement,
		Greeting:        cfg.Persona.Greeting,
	}, cfg.Memory.Limit, logger)

	sessions := services.NewSessionManager(initializer, cfg.Session.IdleTimeout, logger)
	go sessions.Run(ctx, cfg.Session.SweepInterval)

	chat := services.NewChatService(model, services.NewTurnLogger(store, logger), cfg.Model.Timeout, logger)

	controller := controllers.NewChatController(controllers.ChatControllerConfig{
		Sessions:     sessions,
		Chat:         chat,
		Store:        store,
		MemoryLimit:  cfg.Memory.Limit,
		ErrorMessage: cfg.Persona.ErrorMessage,
		Logger:       logger,
	})

	return routes.SetupRouter(controller, logger), store, nil
}
