package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pokemon-investigator/config"
	"pokemon-investigator/investigation"
	"pokemon-investigator/source/pokeapi"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "source"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "pokemon-investigator",
	Short:         "Fetch Pokémon records from PokeAPI and keep the ones matching the investigation criteria",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		cfg = config.Load()
		setLogger(cfg.LogLevel)
		log.Debug().Interface("config", cfg.Redacted()).Msg("config loaded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

func setLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if len(os.Getenv("CONSOLE_LOG")) > 0 {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// newRunner wires the PokeAPI client into a runner using the loaded config.
func newRunner(c *config.Config) *investigation.Runner {
	client := pokeapi.NewClient(
		pokeapi.WithBaseURL(c.BaseURL),
		pokeapi.WithUserAgent(c.UserAgent),
		pokeapi.WithRateLimit(c.RequestsPerSecond, 1),
	)
	return investigation.NewRunner(client, investigation.WithBaseDelay(c.RetryBaseDelay))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("pokemon-investigator failed")
		os.Exit(1)
	}
}
