package main

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/woozymasta/geocheck/internal/config"
	"github.com/woozymasta/geocheck/internal/logger"
	"github.com/woozymasta/geocheck/internal/metrics"
	"github.com/woozymasta/geocheck/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	Addr       string `short:"a" long:"addr"   env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Port       int    `short:"p" long:"port"   env:"LISTEN_PORT"    description:"Port to listen on"          default:"8080"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config, fall back to defaults when the file is absent
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", opts.ConfigFile).Msg("Config file not found, using defaults")
			cfg = config.Default()
		} else {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: 15 * time.Second,
	}

	srvCtx := server.NewServerContext(cfg, client)

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/load", srvCtx.HandleLoad)
	mux.HandleFunc("/api/table", srvCtx.HandleTable)
	mux.HandleFunc("/api/columns", srvCtx.HandleColumns)
	mux.HandleFunc("/api/stats", srvCtx.HandleStats)
	mux.HandleFunc("/api/filter", srvCtx.HandleFilter)
	mux.HandleFunc("/api/export/geojson", srvCtx.HandleExportGeoJSON)
	mux.HandleFunc("/api/export/csv", srvCtx.HandleExportCSV)
	mux.Handle("/metrics", metrics.Handler())

	handler := server.RequestLogger(mux)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	log.Info().
		Str("addr", listenAddr).
		Int("sources", len(cfg.Sources)).
		Msg("Web server started")

	if err := http.ListenAndServe(listenAddr, handler); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
