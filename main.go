package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	v1 "github.com/immoledger/backend/internal/controllers/v1"
	"github.com/immoledger/backend/internal/importer"
	"github.com/immoledger/backend/internal/models"
	"github.com/immoledger/backend/internal/regeneration"
	"github.com/immoledger/backend/internal/router"
	"github.com/immoledger/backend/internal/suggest"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

func main() {
	// A .env file is optional, the environment always wins
	_ = godotenv.Load()

	setupLogging()

	rootCmd := &cobra.Command{
		Use:           "immoledger",
		Short:         "Rent ledger backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}

	rootCmd.AddCommand(serveCmd(), regenerateCmd(), importCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Msg(err.Error())
	}
}

// setupLogging configures gin mode and the global logger from the environment.
func setupLogging() {
	// gin uses debug as the default mode, we use release for
	// security reasons
	ginMode, ok := os.LookupEnv("GIN_MODE")
	if !ok {
		gin.SetMode("release")
	} else {
		gin.SetMode(ginMode)
	}

	// Log format can be explicitly set.
	// If it is not set, it defaults to human readable for development
	// and JSON for release
	logFormat, ok := os.LookupEnv("LOG_FORMAT")
	output := io.Writer(os.Stdout)
	if (!ok && gin.IsDebugging()) || (ok && logFormat == "human") {
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if gin.IsDebugging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(output).With().Timestamp().Logger()
}

// connect opens the database. PostgreSQL is used when DB_HOST is set,
// SQLite in DATA_DIR otherwise.
func connect() error {
	if _, ok := os.LookupEnv("DB_HOST"); ok {
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s", os.Getenv("DB_HOST"), os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"))
		return models.ConnectPostgres(dsn)
	}

	dataDir, ok := os.LookupEnv("DATA_DIR")
	if !ok {
		dataDir = filepath.Join(".", "data")
	}

	err := os.MkdirAll(dataDir, os.ModePerm)
	if err != nil {
		return err
	}

	return models.Connect(filepath.Join(dataDir, "immoledger.db"))
}

// controller builds the API controller from the environment.
func controller(ctx context.Context) (v1.Controller, error) {
	// Writes to the store are throttled, STORE_WRITE_INTERVAL is in milliseconds
	interval := v1.DefaultWriteInterval
	if value, ok := os.LookupEnv("STORE_WRITE_INTERVAL"); ok {
		ms, err := strconv.Atoi(value)
		if err != nil {
			return v1.Controller{}, fmt.Errorf("STORE_WRITE_INTERVAL must be a number of milliseconds: %w", err)
		}
		interval = time.Duration(ms) * time.Millisecond
	}

	co := v1.Controller{
		Throttle: rate.NewLimiter(rate.Every(interval), 1),
	}

	if apiKey, ok := os.LookupEnv("GEMINI_API_KEY"); ok && apiKey != "" {
		gemini, err := suggest.NewGemini(ctx, apiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			return v1.Controller{}, err
		}
		co.Suggester = gemini
		log.Info().Msg("Using Gemini for categorization suggestions")
	}

	return co, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE:  serve,
	}
}

func serve(cmd *cobra.Command, _ []string) error {
	apiURL, ok := os.LookupEnv("API_URL")
	if !ok {
		return errors.New("environment variable API_URL must be set")
	}

	url, err := url.Parse(apiURL)
	if err != nil {
		return fmt.Errorf("environment variable API_URL must be a valid URL: %w", err)
	}

	err = connect()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	co, err := controller(ctx)
	if err != nil {
		return err
	}

	r, teardown, err := router.Config(url)
	defer teardown()
	if err != nil {
		return err
	}
	router.AttachRoutes(co, r.Group(url.Path))

	port, ok := os.LookupEnv("PORT")
	if !ok {
		port = "8080"
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("address", server.Addr).Msg("Listening")
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func regenerateCmd() *cobra.Command {
	var contractID string

	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Regenerate the pending financial items of all active contracts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := connect()
			if err != nil {
				return err
			}

			co, err := controller(cmd.Context())
			if err != nil {
				return err
			}

			var created int
			if contractID != "" {
				id, err := uuid.Parse(contractID)
				if err != nil {
					return fmt.Errorf("invalid contract ID: %w", err)
				}

				created, err = regeneration.RegenerateContract(cmd.Context(), models.DB, co.Throttle, id, time.Now())
				if err != nil {
					return err
				}
			} else {
				created, err = regeneration.RegenerateAll(cmd.Context(), models.DB, co.Throttle, time.Now())
				if err != nil {
					return err
				}
			}

			log.Info().Int("created", created).Msg("Regeneration finished")
			return nil
		},
	}

	cmd.Flags().StringVar(&contractID, "contract", "", "only regenerate the contract with this ID")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a CSV bank statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			err = connect()
			if err != nil {
				return err
			}

			result, err := importer.ImportCSV(cmd.Context(), models.DB, f)
			if err != nil {
				return err
			}

			log.Info().Int("imported", result.Imported).Int("duplicates", result.Duplicates).Msg("Import finished")
			return nil
		},
	}
}
