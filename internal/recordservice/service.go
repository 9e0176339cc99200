// Package recordservice coordinates the in-memory record collection with its
// CSV file, the optional SQLite mirror, metrics and change notifications.
// All presentation layers (CLI, menu, HTTP, MCP) go through it.
package recordservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/starford/epiledger/internal/analysis"
	"github.com/starford/epiledger/internal/apperr"
	"github.com/starford/epiledger/internal/index"
	"github.com/starford/epiledger/internal/models"
	"github.com/starford/epiledger/internal/observability"
	"github.com/starford/epiledger/internal/storage"
)

// Event kinds passed to listeners.
const (
	EventRecordAdded = "record.added"
	EventReloaded    = "collection.reloaded"
)

// Event describes a change to the collection.
type Event struct {
	Kind string
	// City is set for EventRecordAdded.
	City string
	// Count is the collection size after the change.
	Count int
}

// Listener is notified after the collection changes. It runs synchronously
// on the mutating goroutine and must not call back into the service.
type Listener func(Event)

// Publisher forwards appended records to an external sink.
type Publisher interface {
	PublishRecord(ctx context.Context, r models.Record) error
}

// AddInput is the raw, human-entered form of a new record.
type AddInput struct {
	City      string `json:"city"`
	Date      string `json:"date"`
	Cases     int    `json:"cases"`
	Recovered int    `json:"recovered"`
	Deaths    int    `json:"deaths"`
}

// ListQuery filters and pages a record listing.
type ListQuery struct {
	City   string
	Limit  int
	Offset int
}

// Service owns the single in-memory collection.
type Service struct {
	mu       sync.RWMutex
	records  models.Collection
	checksum string
	// indexCurrent reports whether db mirrors records exactly.
	indexCurrent bool

	store      storage.Provider
	db         index.RecordIndex
	thresholds analysis.Thresholds
	metrics    *observability.Metrics
	logger     *slog.Logger
	publisher  Publisher
	listeners  []Listener
}

// Option configures a Service.
type Option func(*Service)

// WithIndex mirrors the collection into db and serves listings from it.
func WithIndex(db index.RecordIndex) Option {
	return func(s *Service) { s.db = db }
}

// WithThresholds overrides the risk tier thresholds.
func WithThresholds(t analysis.Thresholds) Option {
	return func(s *Service) { s.thresholds = t }
}

// WithMetrics records operations on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithPublisher forwards every appended record to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithListener registers fn for change events.
func WithListener(fn Listener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, fn) }
}

// New creates a service over store. Call Load before use.
func New(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		records:    models.Collection{},
		store:      store,
		thresholds: analysis.DefaultThresholds,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetrics(prometheus.NewRegistry())
	}
	return s
}

// Path returns the data file path.
func (s *Service) Path() string {
	return s.store.Path()
}

// Load reads the data file into memory and mirrors it into the index.
func (s *Service) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Reload re-reads the data file if its checksum changed since the last load
// or save. It reports whether the collection was replaced.
func (s *Service) Reload(_ context.Context) (bool, error) {
	s.mu.Lock()
	cs, err := s.store.Checksum()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if cs == s.checksum {
		s.mu.Unlock()
		return false, nil
	}
	if err := s.loadLocked(); err != nil {
		s.mu.Unlock()
		return false, err
	}
	ev := Event{Kind: EventReloaded, Count: len(s.records)}
	s.mu.Unlock()

	s.logger.Info("records reloaded", slog.String("path", s.store.Path()), slog.Int("records", ev.Count))
	s.notify(ev)
	return true, nil
}

func (s *Service) loadLocked() error {
	c, err := s.store.Load()
	if err != nil {
		s.metrics.Loads.WithLabelValues("error").Inc()
		return fmt.Errorf("recordservice: load: %w", err)
	}
	cs, err := s.store.Checksum()
	if err != nil {
		s.metrics.Loads.WithLabelValues("error").Inc()
		return fmt.Errorf("recordservice: load: %w", err)
	}
	s.metrics.Loads.WithLabelValues("success").Inc()
	s.records = c
	s.checksum = cs
	s.metrics.CollectionSize.Set(float64(len(c)))
	s.mirrorLocked()
	return nil
}

// mirrorLocked refreshes the index. Index failures are logged, never returned:
// the CSV file is the source of truth and listings fall back to memory.
func (s *Service) mirrorLocked() {
	if s.db == nil {
		return
	}
	if cs, err := s.db.Checksum(); err == nil && cs != "" && cs == s.checksum {
		s.indexCurrent = true
		return
	}
	if err := s.db.Replace(s.records, s.checksum); err != nil {
		s.indexCurrent = false
		s.logger.Warn("index: mirror failed", slog.String("error", err.Error()))
		return
	}
	s.indexCurrent = true
	s.metrics.IndexSyncs.Inc()
}

// Add parses and validates in, appends it, and saves the whole collection.
// On apperr.ErrPersistence the record is kept in memory and returned along
// with the error; Resave retries the write.
func (s *Service) Add(ctx context.Context, in AddInput) (models.Record, error) {
	r, err := models.NewRecord(in.City, in.Date, in.Cases, in.Recovered, in.Deaths)
	if err != nil {
		return models.Record{}, err
	}

	s.mu.Lock()
	err = storage.Append(s.store, &s.records, r)
	s.metrics.RecordsAppended.Inc()
	s.metrics.CollectionSize.Set(float64(len(s.records)))
	if err != nil {
		s.metrics.Saves.WithLabelValues("error").Inc()
		s.indexCurrent = false
		s.mu.Unlock()
		s.logger.Error("save failed after append",
			slog.String("city", r.City),
			slog.String("error", err.Error()))
		return r, err
	}
	s.metrics.Saves.WithLabelValues("success").Inc()
	s.syncAfterSaveLocked()
	ev := Event{Kind: EventRecordAdded, City: r.City, Count: len(s.records)}
	s.mu.Unlock()

	s.logger.Info("record added", slog.String("city", r.City), slog.Int("cases", r.Cases))
	s.notify(ev)
	s.publish(ctx, r)
	return r, nil
}

// Resave writes the in-memory collection to disk. Use it to recover from
// apperr.ErrPersistence.
func (s *Service) Resave(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(s.records); err != nil {
		s.metrics.Saves.WithLabelValues("error").Inc()
		return fmt.Errorf("recordservice: resave: %w: %w", apperr.ErrPersistence, err)
	}
	s.metrics.Saves.WithLabelValues("success").Inc()
	s.syncAfterSaveLocked()
	return nil
}

// syncAfterSaveLocked records the new file checksum and refreshes the index.
// Without a checksum the mirror cannot be matched to the file, so listings
// stay on memory until the next successful save or load.
func (s *Service) syncAfterSaveLocked() {
	cs, err := s.store.Checksum()
	if err != nil {
		s.indexCurrent = false
		s.logger.Warn("checksum after save failed", slog.String("error", err.Error()))
		return
	}
	s.checksum = cs
	s.mirrorLocked()
}

// Records returns a copy of the collection in insertion order.
func (s *Service) Records() models.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records.Clone()
}

// List returns records matching q in insertion order and the total number of
// matches before paging. A non-positive limit means no limit.
func (s *Service) List(_ context.Context, q ListQuery) ([]models.Record, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db != nil && s.indexCurrent {
		out, total, err := s.db.ListRecords(q.City, q.Limit, q.Offset)
		if err == nil {
			return out, total, nil
		}
		s.logger.Warn("index: list failed, using memory", slog.String("error", err.Error()))
	}

	matched := s.records
	if city := strings.TrimSpace(q.City); city != "" {
		matched = matched.Filter(city)
	}
	return page(matched, q.Limit, q.Offset), len(matched), nil
}

func page(c models.Collection, limit, offset int) []models.Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(c) {
		return []models.Record{}
	}
	end := len(c)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]models.Record, end-offset)
	copy(out, c[offset:end])
	return out
}

// RiskZones classifies every city by its first record.
func (s *Service) RiskZones(_ context.Context) analysis.RiskZones {
	s.metrics.AnalysisRequests.WithLabelValues("risk_zones").Inc()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thresholds.ClassifyRiskZones(s.records)
}

// Hotspot returns the city with the highest cumulative cases.
func (s *Service) Hotspot(_ context.Context) (analysis.Hotspot, error) {
	s.metrics.AnalysisRequests.WithLabelValues("hotspot").Inc()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return analysis.PredictHotspot(s.records)
}

// Totals returns cumulative cases per city in first-appearance order.
func (s *Service) Totals(_ context.Context) ([]analysis.CityTotal, error) {
	s.metrics.AnalysisRequests.WithLabelValues("totals").Inc()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db != nil && s.indexCurrent {
		totals, err := s.db.CityTotals()
		if err == nil {
			return totals, nil
		}
		s.logger.Warn("index: totals failed, using memory", slog.String("error", err.Error()))
	}
	return analysis.CityTotals(s.records), nil
}

// Trends returns the per-city (date, cases) series in insertion order.
func (s *Service) Trends(_ context.Context) []analysis.Series {
	s.metrics.AnalysisRequests.WithLabelValues("trend").Inc()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return analysis.TrendSeries(s.records)
}

// Trend returns the series for one city, or apperr.ErrNotFound.
func (s *Service) Trend(_ context.Context, city string) (analysis.Series, error) {
	s.metrics.AnalysisRequests.WithLabelValues("trend").Inc()
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, ok := analysis.SeriesFor(s.records, strings.TrimSpace(city))
	if !ok {
		return analysis.Series{}, fmt.Errorf("recordservice: trend %q: %w", city, apperr.ErrNotFound)
	}
	return series, nil
}

// Thresholds returns the configured risk tier thresholds.
func (s *Service) Thresholds() analysis.Thresholds {
	return s.thresholds
}

func (s *Service) notify(ev Event) {
	for _, fn := range s.listeners {
		fn(ev)
	}
}

func (s *Service) publish(ctx context.Context, r models.Record) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecord(ctx, r); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Warn("publish record failed", slog.String("city", r.City), slog.String("error", err.Error()))
	}
}
