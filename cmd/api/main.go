package main

import (
	"context"
	"os"

	"github.com/yigit/lingoschool/internal/pkg/logger"
	"github.com/yigit/lingoschool/internal/server"
)

// @title Lingo School API
// @version 1.0
// @description API for the Lingo School portal: enrollment, lesson booking, payments, agreements and intake forms
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@lingoschool.app

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization, "Bearer <token>". Browsers may use the session cookie instead.

func main() {
	srv, err := server.NewServer(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
