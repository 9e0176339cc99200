package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/epiledger/internal/recordservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *recordservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *recordservice.Service) *Handler {
	return &Handler{svc: svc}
}

// queryInt reads a non-negative integer query parameter; absent means 0.
func queryInt(q url.Values, key string) (int, bool) {
	raw := q.Get(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ListRecords handles GET /api/records.
//
//	@Summary		List records in insertion order
//	@Tags			records
//	@Produce		json
//	@Param			city	query		string	false	"Filter by city"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	RecordListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := queryInt(q, "limit")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("limit must be a non-negative integer"))
		return
	}
	offset, ok := queryInt(q, "offset")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("offset must be a non-negative integer"))
		return
	}

	records, total, err := h.svc.List(r.Context(), recordservice.ListQuery{
		City:   q.Get("city"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, "list records", err)
		return
	}
	writeJSON(w, http.StatusOK, RecordListResponse{Records: records, Total: total})
}

// CreateRecord handles POST /api/records.
//
//	@Summary		Append a record and save the data file
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateRecordRequest	true	"Record to add"
//	@Success		201		{object}	models.Record
//	@Failure		400		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records [post]
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	rec, err := h.svc.Add(r.Context(), req)
	if err != nil {
		writeError(w, "create record", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// RiskZones handles GET /api/risk-zones.
//
//	@Summary		Classify cities into risk tiers by their first record
//	@Tags			analysis
//	@Produce		json
//	@Success		200	{object}	RiskZonesResponse
//	@Security		BearerAuth
//	@Router			/risk-zones [get]
func (h *Handler) RiskZones(w http.ResponseWriter, r *http.Request) {
	th := h.svc.Thresholds()
	writeJSON(w, http.StatusOK, RiskZonesResponse{
		Zones:      h.svc.RiskZones(r.Context()),
		Thresholds: ThresholdsDTO{High: th.High, Medium: th.Medium},
	})
}

// Hotspot handles GET /api/hotspot.
//
//	@Summary		City with the highest cumulative cases
//	@Tags			analysis
//	@Produce		json
//	@Success		200	{object}	HotspotResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/hotspot [get]
func (h *Handler) Hotspot(w http.ResponseWriter, r *http.Request) {
	hot, err := h.svc.Hotspot(r.Context())
	if err != nil {
		writeError(w, "hotspot", err)
		return
	}
	writeJSON(w, http.StatusOK, hot)
}

// Totals handles GET /api/totals.
//
//	@Summary		Cumulative cases per city
//	@Tags			analysis
//	@Produce		json
//	@Success		200	{object}	TotalsResponse
//	@Security		BearerAuth
//	@Router			/totals [get]
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.svc.Totals(r.Context())
	if err != nil {
		writeError(w, "totals", err)
		return
	}
	writeJSON(w, http.StatusOK, TotalsResponse{Totals: totals})
}

// Trends handles GET /api/trends.
//
//	@Summary		Per-city (date, cases) series in insertion order
//	@Tags			analysis
//	@Produce		json
//	@Success		200	{object}	TrendsResponse
//	@Security		BearerAuth
//	@Router			/trends [get]
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TrendsResponse{Series: h.svc.Trends(r.Context())})
}

// Trend handles GET /api/trends/{city}.
//
//	@Summary		One city's series
//	@Tags			analysis
//	@Produce		json
//	@Param			city	path		string	true	"City name"
//	@Success		200		{object}	analysis.Series
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/trends/{city} [get]
func (h *Handler) Trend(w http.ResponseWriter, r *http.Request) {
	// chi matches on RawPath when it is set, leaving the parameter escaped.
	city := chi.URLParam(r, "city")
	if r.URL.RawPath != "" {
		var err error
		if city, err = url.PathUnescape(city); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid city"))
			return
		}
	}
	series, err := h.svc.Trend(r.Context(), city)
	if err != nil {
		writeError(w, "trend", err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}
