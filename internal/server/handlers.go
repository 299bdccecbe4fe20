package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geocheck/internal/export"
	"github.com/woozymasta/geocheck/internal/filter"
	"github.com/woozymasta/geocheck/internal/ingest"
	"github.com/woozymasta/geocheck/internal/metrics"
	"github.com/woozymasta/geocheck/internal/session"
	"github.com/woozymasta/geocheck/internal/table"
)

// maxUploadSize bounds a pasted or uploaded document.
const maxUploadSize = 256 << 20

type loadResponse struct {
	Origin        string `json:"origin"`
	TotalFeatures int    `json:"total_features"`
	ValidFeatures int    `json:"valid_features"`
	PropertyCount int    `json:"property_count"`
}

type tableResponse struct {
	Columns []string    `json:"columns"`
	Rows    []table.Row `json:"rows"`
}

type filterResponse struct {
	Indices  []int       `json:"indices"`
	Rows     []table.Row `json:"rows"`
	Total    int         `json:"total"`
	Filtered int         `json:"filtered"`
}

type statsResponse struct {
	Origin        string          `json:"origin"`
	TotalFeatures int             `json:"total_features"`
	ValidFeatures int             `json:"valid_features"`
	PropertyCount int             `json:"property_count"`
	Columns       []filter.Column `json:"columns"`
}

// HandleLoad ingests a new collection from a preset source, a URL or the
// request body and rebuilds the session snapshot.
func (s *ServerContext) HandleLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	data, origin, err := s.readDocument(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := s.Load(data, origin)
	if err != nil {
		log.Error().Err(err).Str("origin", origin).Msg("Load failed")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, loadResponse{
		Origin:        st.Origin,
		TotalFeatures: st.Collection.Total(),
		ValidFeatures: len(st.Collection.Valid),
		PropertyCount: propertyCount(st.Table),
	})
}

// readDocument resolves the three ingestion paths: preset source, URL, body.
func (s *ServerContext) readDocument(r *http.Request) ([]byte, string, error) {
	if name := r.URL.Query().Get("source"); name != "" {
		src, ok := s.Config.FindSource(name)
		if !ok {
			return nil, "", &unknownSourceError{name}
		}
		data, err := ingest.FromSource(s.Client, src)
		return data, "source:" + name, err
	}

	if rawURL := r.URL.Query().Get("url"); rawURL != "" {
		data, err := ingest.FromURL(s.Client, rawURL)
		return data, "url:" + rawURL, err
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", &emptyBodyError{}
	}
	return data, "upload", nil
}

// HandleTable serves the full attribute table of the current snapshot.
func (s *ServerContext) HandleTable(w http.ResponseWriter, r *http.Request) {
	st := s.Session.Current()
	if st == nil {
		writeError(w, http.StatusNotFound, "no collection loaded")
		return
	}

	writeJSON(w, tableResponse{Columns: st.Table.Columns, Rows: st.Table.Rows})
}

// HandleColumns serves the per-column filter metadata.
func (s *ServerContext) HandleColumns(w http.ResponseWriter, r *http.Request) {
	st := s.Session.Current()
	if st == nil {
		writeError(w, http.StatusNotFound, "no collection loaded")
		return
	}

	writeJSON(w, st.Columns)
}

// HandleStats serves the summary metrics for the current snapshot.
func (s *ServerContext) HandleStats(w http.ResponseWriter, r *http.Request) {
	st := s.Session.Current()
	if st == nil {
		writeError(w, http.StatusNotFound, "no collection loaded")
		return
	}

	writeJSON(w, statsResponse{
		Origin:        st.Origin,
		TotalFeatures: st.Collection.Total(),
		ValidFeatures: len(st.Collection.Valid),
		PropertyCount: propertyCount(st.Table),
		Columns:       st.Columns,
	})
}

// HandleFilter evaluates the posted filter specs against the current table.
func (s *ServerContext) HandleFilter(w http.ResponseWriter, r *http.Request) {
	st, specs, ok := s.filterRequest(w, r)
	if !ok {
		return
	}

	metrics.FilterRequestsTotal.Inc()
	res := filter.Evaluate(st.Table, specs)

	rows := make([]table.Row, 0, len(res.Indices))
	for _, idx := range res.Indices {
		rows = append(rows, st.Table.Rows[idx])
	}

	writeJSON(w, filterResponse{
		Indices:  res.Indices,
		Rows:     rows,
		Total:    len(st.Table.Rows),
		Filtered: len(res.Indices),
	})
}

// HandleExportGeoJSON projects the filtered subset back to GeoJSON.
// Responds 204 when the selection is empty: nothing to export is not an error.
func (s *ServerContext) HandleExportGeoJSON(w http.ResponseWriter, r *http.Request) {
	st, specs, ok := s.filterRequest(w, r)
	if !ok {
		return
	}

	res := filter.Evaluate(st.Table, specs)

	var out []byte
	var err error
	if r.URL.Query().Get("compact") != "" {
		out, err = export.CompactGeoJSON(st.Collection, res)
	} else {
		out, err = export.GeoJSON(st.Collection, res)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	metrics.ExportsTotal.WithLabelValues("geojson").Inc()
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Content-Disposition", `attachment; filename="filtered.geojson"`)
	_, _ = w.Write(out)
}

// HandleExportCSV serves the filtered rows as CSV, optionally restricted to
// ?columns=a,b,c.
func (s *ServerContext) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	st, specs, ok := s.filterRequest(w, r)
	if !ok {
		return
	}

	var columns []string
	if raw := r.URL.Query().Get("columns"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				columns = append(columns, c)
			}
		}
	}

	res := filter.Evaluate(st.Table, specs)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="filtered.csv"`)
	if err := export.CSV(w, st.Table, res, columns); err != nil {
		log.Error().Err(err).Msg("CSV export failed")
		return
	}

	metrics.ExportsTotal.WithLabelValues("csv").Inc()
}

// filterRequest decodes filter specs from the body and validates them against
// the current snapshot. An empty body means no constraints.
func (s *ServerContext) filterRequest(w http.ResponseWriter, r *http.Request) (*session.State, filter.Specs, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return nil, nil, false
	}

	st := s.Session.Current()
	if st == nil {
		writeError(w, http.StatusNotFound, "no collection loaded")
		return nil, nil, false
	}

	specs := filter.Specs{}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &specs); err != nil {
			writeError(w, http.StatusBadRequest, "invalid filter specs: "+err.Error())
			return nil, nil, false
		}
	}

	known := make(map[string]bool, len(st.Table.Columns))
	for _, c := range st.Table.Columns {
		known[c] = true
	}
	for col := range specs {
		if !known[col] {
			writeError(w, http.StatusBadRequest, "unknown column: "+col)
			return nil, nil, false
		}
	}

	return st, specs, true
}

// propertyCount is the number of property columns, without the synthetic
// quality columns.
func propertyCount(tbl *table.Table) int {
	return len(tbl.Columns) - 3
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

type unknownSourceError struct{ name string }

func (e *unknownSourceError) Error() string { return "unknown source: " + e.name }

type emptyBodyError struct{}

func (e *emptyBodyError) Error() string { return "empty request body" }
