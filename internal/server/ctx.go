// Package server handles HTTP requests and middleware.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geocheck/internal/config"
	"github.com/woozymasta/geocheck/internal/filter"
	"github.com/woozymasta/geocheck/internal/geo"
	"github.com/woozymasta/geocheck/internal/metrics"
	"github.com/woozymasta/geocheck/internal/session"
	"github.com/woozymasta/geocheck/internal/table"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config  *config.Config
	Session *session.Session
	Client  *http.Client
	Limits  filter.Limits
}

// NewServerContext wires the session and filter limits from configuration.
func NewServerContext(cfg *config.Config, client *http.Client) *ServerContext {
	log.Info().
		Int("sources", len(cfg.Sources)).
		Int("max_categorical", cfg.Engine.MaxCategoricalValues).
		Int("max_fraction_digits", cfg.Engine.MaxFractionDigits).
		Msg("Initializing server context")

	return &ServerContext{
		Config:  cfg,
		Session: session.New(),
		Client:  client,
		Limits: filter.Limits{
			MaxCategorical: cfg.Engine.MaxCategoricalValues,
			RoundDecimals:  cfg.Engine.NumericRoundDecimals,
			RangeWiden:     cfg.Engine.RangeWidenAmount,
		},
	}
}

// Load parses the document, builds the attribute table and installs the new
// snapshot. On any error the previous snapshot stays active.
func (s *ServerContext) Load(data []byte, origin string) (*session.State, error) {
	c, err := geo.ParseCollection(data)
	if err != nil {
		metrics.LoadFailuresTotal.Inc()
		return nil, fmt.Errorf("parse collection: %w", err)
	}

	start := time.Now()
	tbl, err := table.Build(c, s.Config.Engine.MaxFractionDigits)
	if err != nil {
		metrics.LoadFailuresTotal.Inc()
		return nil, fmt.Errorf("build table: %w", err)
	}
	metrics.BuildDurationMs.Observe(float64(time.Since(start).Milliseconds()))

	st := &session.State{
		Collection: c,
		Table:      tbl,
		Columns:    filter.Describe(tbl, s.Limits),
		Origin:     origin,
		LoadedAt:   time.Now(),
	}
	s.Session.Replace(st)

	metrics.LoadsTotal.Inc()
	metrics.FeaturesLoaded.Set(float64(c.Total()))

	log.Info().
		Str("origin", origin).
		Int("features", c.Total()).
		Int("valid", len(c.Valid)).
		Int("columns", len(tbl.Columns)).
		Msg("Collection loaded")

	return st, nil
}
