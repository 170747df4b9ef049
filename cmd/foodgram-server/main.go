package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/foodgram/foodgram/pkg/foodgram/config"
	"github.com/foodgram/foodgram/pkg/foodgram/database"
	"github.com/foodgram/foodgram/pkg/foodgram/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title Foodgram API
// @version 1.0
// @description Recipe sharing with favorites, shopping lists, subscriptions and short links.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey TokenAuth
// @in header
// @name Authorization
// @description Format: "Token {token}"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "foodgram-server",
	Short:         "Foodgram recipe sharing API",
	SilenceUsage:  true,
	SilenceErrors: true,
	// Running the bare binary serves the API
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("FOODGRAM_CONFIG"), "path to a YAML config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, builds the logger and opens a migrated database
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, nil, err
	}
	logger.Info("Database migrations completed", zap.String("driver", cfg.DB.Driver))

	return cfg, logger, db, nil
}
