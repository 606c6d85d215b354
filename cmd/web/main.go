package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/de-tools/report-atlas/pkg/server"
	"github.com/de-tools/report-atlas/pkg/services/config"
	"github.com/de-tools/report-atlas/pkg/services/registry"
	"github.com/de-tools/report-atlas/pkg/services/reporting"
	"github.com/de-tools/report-atlas/pkg/services/source"
)

var (
	cfgPath      string
	profilesPath string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for Report Atlas",
		RunE:  runServer,
	}

	defaultProfiles := ".reportcfg"
	if home, err := os.UserHomeDir(); err == nil {
		defaultProfiles = fmt.Sprintf("%s/.reportcfg", home)
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "report-atlas.yaml",
		"Path to the report definitions file")
	rootCmd.Flags().StringVar(&profilesPath, "profiles", defaultProfiles,
		"Path to the source profiles file (default is $HOME/.reportcfg)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	settings, err := config.LoadSettings(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	catalog, err := registry.NewCatalogFromSettings(settings)
	if err != nil {
		return fmt.Errorf("failed to register definitions: %w", err)
	}

	if settings.Profiles != "" {
		profilesPath = settings.Profiles
	}
	var profiles config.ProfileRegistry
	if _, statErr := os.Stat(profilesPath); statErr == nil {
		profiles, err = config.NewProfileRegistry(profilesPath)
		if err != nil {
			return fmt.Errorf("failed to create profile registry: %w", err)
		}

		found, _ := profiles.GetProfiles(ctx)
		logger.Info().Msgf("Profiles at `%s` successfully loaded.", profilesPath)
		for _, profile := range found {
			logger.Info().Msgf("Name: `%s`, Type: `%s`", profile.Name, profile.Type)
		}
	} else {
		logger.Warn().Str("path", profilesPath).Msg("no profiles file, only inline records can be reported")
	}

	logger.Info().Strs("definitions", catalog.Names()).Msgf("Configuration found at `%s` successfully loaded.", cfgPath)

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")

	if host == "" || port == "" {
		logger.Error().Msgf("Missing server configuration from .env file")
		os.Exit(1)
	}

	api := server.NewWebAPI(logger, server.Config{
		Addr: net.JoinHostPort(host, port),
		Dependencies: server.Dependencies{
			Catalog: catalog,
			Reports: reporting.NewService(catalog, profiles, source.NewDefaultRegistry(), nil),
		},
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return api.Start(ctx)
}
