package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"whoson/internal/app"
)

func main() {
	addr := flag.String("addr", getEnv("WHOSON_ADDR", ""), "server listen address")
	dbPath := flag.String("db", getEnv("WHOSON_DB_PATH", ""), "activity journal path (sqlite)")
	configPath := flag.String("config", getEnv("WHOSON_CONFIG", ""), "optional yaml config file")
	logLevel := flag.String("log-level", getEnv("WHOSON_LOG_LEVEL", ""), "log level (trace..error)")
	jsonLogs := flag.Bool("json-logs", false, "emit JSON logs instead of console output")
	noJournal := flag.Bool("no-journal", false, "disable the sqlite activity journal")
	flag.Parse()

	var cfg app.ServerConfig
	if *configPath != "" {
		loaded, err := app.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Flags override the config file.
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *jsonLogs {
		cfg.LogJSON = true
	}
	if *noJournal {
		cfg.JournalDisabled = true
	}
	cfg.ApplyDefaults()

	log := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := app.RunServer(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("start server")
	}
	log.Info().Str("addr", handle.Addr()).Msg("whoson server listening")

	if err := handle.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
