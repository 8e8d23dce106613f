package main

import (
	"context"
	"roombook/config"
	"roombook/di"
	"roombook/shared/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	app, err := di.InitializeApp()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	if err := app.Run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
}
