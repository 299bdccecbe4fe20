package main

import (
	"crypto/tls"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/woozymasta/geocheck/internal/config"
	"github.com/woozymasta/geocheck/internal/export"
	"github.com/woozymasta/geocheck/internal/filter"
	"github.com/woozymasta/geocheck/internal/geo"
	"github.com/woozymasta/geocheck/internal/ingest"
	"github.com/woozymasta/geocheck/internal/logger"
	"github.com/woozymasta/geocheck/internal/table"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to configuration file"`

	Input  string `short:"i" long:"in"     description:"Input GeoJSON file path. Reads from stdin if no input is given"`
	URL    string `short:"u" long:"url"    description:"Fetch GeoJSON from a URL"`
	Source string `short:"s" long:"source" description:"Load a preset source by name from the config file"`

	Select []string `short:"S" long:"select" description:"Categorical filter as col=v1,v2 (repeatable)"`
	Range  []string `short:"r" long:"range"  description:"Numeric range filter as col=min:max (repeatable)"`

	Output  string `short:"o" long:"out"     description:"Write the filtered GeoJSON subset to a file, '-' for stdout"`
	CSV     string `long:"csv"               description:"Write the filtered rows as CSV to a file, '-' for stdout"`
	Columns string `long:"columns"           description:"Comma-separated column subset for the CSV export"`
	Compact bool   `long:"compact"           description:"Minify the GeoJSON output instead of pretty-printing"`
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

	opts.Logger.Setup()

	cfg := loadConfig(opts.ConfigFile)

	data := readInput(&opts, cfg)

	c, err := geo.ParseCollection(data)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse collection")
	}

	tbl, err := table.Build(c, cfg.Engine.MaxFractionDigits)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build attribute table")
	}

	limits := filter.Limits{
		MaxCategorical: cfg.Engine.MaxCategoricalValues,
		RoundDecimals:  cfg.Engine.NumericRoundDecimals,
		RangeWiden:     cfg.Engine.RangeWidenAmount,
	}
	columns := filter.Describe(tbl, limits)

	specs := buildSpecs(&opts, tbl)
	res := filter.Evaluate(tbl, specs)

	report(c, tbl, columns, res)

	if opts.Output != "" {
		writeGeoJSON(&opts, c, res)
	}

	if opts.CSV != "" {
		writeCSV(&opts, tbl, res)
	}
}

func loadConfig(path string) *config.Config {
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	return cfg
}

// readInput resolves the input precedence: file, URL, preset source, stdin.
func readInput(opts *Options, cfg *config.Config) []byte {
	var data []byte
	var err error

	switch {
	case opts.Input != "":
		data, err = ingest.FromFile(opts.Input)
	case opts.URL != "":
		data, err = ingest.FromURL(httpClient(), opts.URL)
	case opts.Source != "":
		src, ok := cfg.FindSource(opts.Source)
		if !ok {
			log.Fatal().Str("source", opts.Source).Msg("Source not found in configuration")
		}
		data, err = ingest.FromSource(httpClient(), src)
	default:
		data, err = io.ReadAll(os.Stdin)
	}

	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read input")
	}
	return data
}

func httpClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: 15 * time.Second,
	}
}

// buildSpecs converts the --select and --range flags into filter specs.
func buildSpecs(opts *Options, tbl *table.Table) filter.Specs {
	known := make(map[string]bool, len(tbl.Columns))
	for _, c := range tbl.Columns {
		known[c] = true
	}

	specs := filter.Specs{}

	for _, raw := range opts.Select {
		col, rest, ok := strings.Cut(raw, "=")
		if !ok || col == "" {
			log.Fatal().Str("select", raw).Msg("Expected col=v1,v2")
		}
		if !known[col] {
			log.Fatal().Str("column", col).Msg("Unknown column in --select")
		}
		spec := specs[col]
		spec.Selected = append(spec.Selected, strings.Split(rest, ",")...)
		specs[col] = spec
	}

	for _, raw := range opts.Range {
		col, rest, ok := strings.Cut(raw, "=")
		if !ok || col == "" {
			log.Fatal().Str("range", raw).Msg("Expected col=min:max")
		}
		if !known[col] {
			log.Fatal().Str("column", col).Msg("Unknown column in --range")
		}
		lo, hi, ok := strings.Cut(rest, ":")
		if !ok {
			log.Fatal().Str("range", raw).Msg("Expected col=min:max")
		}
		minVal, err1 := strconv.ParseFloat(lo, 64)
		maxVal, err2 := strconv.ParseFloat(hi, 64)
		if err1 != nil || err2 != nil {
			log.Fatal().Str("range", raw).Msg("Range bounds must be numbers")
		}
		spec := specs[col]
		spec.Range = &filter.Range{Min: minVal, Max: maxVal}
		specs[col] = spec
	}

	return specs
}

// report logs the summary: totals, column kinds and quality violations.
func report(c *geo.Collection, tbl *table.Table, columns []filter.Column, res filter.Result) {
	windingFlagged := 0
	precisionFlagged := 0
	for _, row := range tbl.Rows {
		if row.Cells[table.ColWinding] == true {
			windingFlagged++
		}
		if row.Cells[table.ColPrecision] == true {
			precisionFlagged++
		}
	}

	log.Info().
		Int("total_features", c.Total()).
		Int("valid_features", len(c.Valid)).
		Int("filtered_features", len(res.Indices)).
		Int("properties", len(tbl.Columns)-3).
		Int("clockwise_rings", windingFlagged).
		Int("excess_precision", precisionFlagged).
		Msg("Collection checked")

	for _, col := range columns {
		ev := log.Debug().
			Str("column", col.Name).
			Str("kind", string(col.Kind)).
			Bool("filterable", col.Filterable).
			Int("distinct", col.Distinct).
			Int("missing", col.Missing)
		if col.Range != nil {
			ev = ev.Float64("min", col.Range.Min).Float64("max", col.Range.Max)
		}
		ev.Msg("Column")
	}
}

func writeGeoJSON(opts *Options, c *geo.Collection, res filter.Result) {
	var out []byte
	var err error
	if opts.Compact {
		out, err = export.CompactGeoJSON(c, res)
	} else {
		out, err = export.GeoJSON(c, res)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to export GeoJSON")
	}
	if out == nil {
		log.Warn().Msg("Nothing to export, skipping GeoJSON output")
		return
	}

	writeArtifact(opts.Output, append(out, '\n'))
	log.Info().Str("path", opts.Output).Int("features", len(res.Indices)).Msg("GeoJSON written")
}

func writeCSV(opts *Options, tbl *table.Table, res filter.Result) {
	var columns []string
	if opts.Columns != "" {
		for _, c := range strings.Split(opts.Columns, ",") {
			if c = strings.TrimSpace(c); c != "" {
				columns = append(columns, c)
			}
		}
	}

	var buf strings.Builder
	if err := export.CSV(&buf, tbl, res, columns); err != nil {
		log.Fatal().Err(err).Msg("Failed to export CSV")
	}

	writeArtifact(opts.CSV, []byte(buf.String()))
	log.Info().Str("path", opts.CSV).Int("rows", len(res.Indices)).Msg("CSV written")
}

func writeArtifact(path string, data []byte) {
	if path == "-" {
		_, _ = os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write output")
	}
}
