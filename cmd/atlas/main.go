// Package main provides the entry point for the Atlas result map service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/jobrunner/atlas/internal/adapters/geojson"
	"github.com/jobrunner/atlas/internal/app"
	"github.com/jobrunner/atlas/internal/config"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	cfgFile string
	v       = config.New()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Atlas - result map service",
	Long: `Atlas renders search results on a planar or globe map engine.

It loads results from GeoJSON documents or a GeoPackage, draws them together
with configurable imagery layers and keeps the map in step with selection.

Features:
  - Planar (2D) and globe (3D) engines behind one interface
  - WMS, WMTS, XYZ and tile-service imagery layers
  - Distance-based clustering with convex hull outlines
  - Multiple storage backends (local, AWS S3, Azure, HTTP)
  - Hot-reload of result files
  - HTTP API for scene inspection and pointer simulation
  - Prometheus metrics`,
	RunE: runServer,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the map service with its HTTP API (default)",
	RunE:  runServer,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Load results once and print the rendered scene",
	RunE:  runRender,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("Atlas %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Build Date: %s\n", buildDate)
	},
}

func init() {
	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, text)")

	// Map flags
	flags.String("engine", "planar", "map engine (planar, globe)")
	flags.Bool("clustering", true, "cluster nearby results")
	flags.Float64("threshold", 50, "clustering distance in meters")

	// Result flags
	flags.String("source", "storage", "result source (storage, geopackage)")
	flags.String("storage-type", "local", "storage type (local, s3, azure, http)")
	flags.String("storage-path", "./results", "local storage path")
	flags.String("geopackage", "", "GeoPackage file with results")

	// Server flags
	serveFlags := serveFlagSet()
	rootCmd.Flags().AddFlagSet(serveFlags)
	serveCmd.Flags().AddFlagSet(serveFlags)

	// Render flags
	renderCmd.Flags().StringP("format", "f", "yaml", "output format (yaml, json, geojson)")
	renderCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	renderCmd.Flags().StringSlice("select", nil, "result ids to select before rendering")

	// Bind flags to viper
	_ = v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = v.BindPFlag("engine.kind", flags.Lookup("engine"))
	_ = v.BindPFlag("clustering.enabled", flags.Lookup("clustering"))
	_ = v.BindPFlag("clustering.threshold_meters", flags.Lookup("threshold"))
	_ = v.BindPFlag("results.source", flags.Lookup("source"))
	_ = v.BindPFlag("results.storage.type", flags.Lookup("storage-type"))
	_ = v.BindPFlag("results.storage.local_path", flags.Lookup("storage-path"))
	_ = v.BindPFlag("results.geopackage.path", flags.Lookup("geopackage"))
	_ = v.BindPFlag("server.host", serveFlags.Lookup("host"))
	_ = v.BindPFlag("server.port", serveFlags.Lookup("port"))
	_ = v.BindPFlag("server.cors.allowed_origins", serveFlags.Lookup("cors"))
	_ = v.BindPFlag("results.reload_interval", serveFlags.Lookup("reload-interval"))

	rootCmd.AddCommand(serveCmd, renderCmd, versionCmd)
}

// serveFlagSet returns the server flags shared by the root and serve commands.
func serveFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.String("host", "0.0.0.0", "server host")
	fs.Int("port", 8080, "server port")
	fs.StringSlice("cors", nil, "allowed CORS origins (e.g., https://example.com,*.sub.domain.tld)")
	fs.Duration("reload-interval", 0, "periodic result reload interval (0 disables)")
	return fs
}

func runServer(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting Atlas",
		"version", version,
		"engine", cfg.Engine.Kind,
		"source", cfg.Results.Source,
		"address", cfg.Server.Address(),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize application
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	// Start server in background
	serverErr := make(chan error, 1)
	go func() {
		if err := application.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

func runRender(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	selectIDs, _ := cmd.Flags().GetStringSlice("select")

	switch format {
	case "yaml", "json", "geojson":
	default:
		return fmt.Errorf("unknown format %q (yaml, json, geojson)", format)
	}

	v.Set("server.enabled", false)
	v.Set("watcher.enabled", false)
	v.Set("metrics.enabled", false)
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr so the scene can be piped.
	logger := setupLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = application.Shutdown(context.Background()) }()

	if err := application.Prime(ctx); err != nil {
		return err
	}
	if len(selectIDs) > 0 {
		application.Controller.Select(selectIDs, false)
	}

	scene := application.Controller.Snapshot()

	var data []byte
	switch format {
	case "yaml":
		data, err = yaml.Marshal(scene)
	case "json":
		data, err = json.MarshalIndent(scene, "", "  ")
		data = append(data, '\n')
	case "geojson":
		data, err = geojson.EncodeScene(application.Active.Results(), scene)
	}
	if err != nil {
		return fmt.Errorf("encoding scene: %w", err)
	}

	return writeOutput(output, data)
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func setupLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(time.Now().UTC().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}
