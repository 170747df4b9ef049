package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/foodgram/foodgram/pkg/foodgram/auth"
	"github.com/foodgram/foodgram/pkg/foodgram/ingredients"
	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"github.com/foodgram/foodgram/pkg/foodgram/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	return server.New(cfg, db, logger).Run(cmd.Context())
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, _, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()
		return nil
	},
}

var importFormat string

var importCmd = &cobra.Command{
	Use:   "import-ingredients <file>",
	Short: "Load ingredients from a JSON or CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		path := args[0]
		format := importFormat
		if format == "" {
			format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		result, err := ingredients.NewImporter(db, logger).Import(cmd.Context(), f, format)
		if err != nil {
			return err
		}
		for _, msg := range result.Errors {
			logger.Warn("Skipped record", zap.String("reason", msg))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", result.Imported, result.Skipped)
		return nil
	},
}

var (
	adminEmail    string
	adminUsername string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account unless one already exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if adminPassword == "" {
			adminPassword = os.Getenv("FOODGRAM_ADMIN_PASSWORD")
		}
		if adminPassword == "" {
			return errors.New("an admin password is required (--password or FOODGRAM_ADMIN_PASSWORD)")
		}
		return ensureAdminExists(db, logger, adminEmail, adminUsername, adminPassword)
	},
}

// ensureAdminExists creates an admin user if no admin exists in the database
func ensureAdminExists(db *gorm.DB, logger *zap.Logger, email, username, password string) error {
	var count int64
	if err := db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Admin user already exists")
		return nil
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	adminUser := models.User{
		Email:        email,
		Username:     username,
		FirstName:    "Admin",
		LastName:     "Foodgram",
		PasswordHash: hashedPassword,
		SystemRole:   models.SystemRoleAdmin,
	}
	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	logger.Info("Created admin user", zap.String("email", email))
	return nil
}

func init() {
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "json or csv (default: from the file extension)")

	createAdminCmd.Flags().StringVar(&adminEmail, "email", "admin@foodgram.local", "admin email")
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "admin", "admin username")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password")

	rootCmd.AddCommand(serveCmd, migrateCmd, importCmd, createAdminCmd)
}
