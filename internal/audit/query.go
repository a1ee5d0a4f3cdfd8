// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/nexusaudit/internal/cache"
	"github.com/tomtom215/nexusaudit/internal/metrics"
	"github.com/tomtom215/nexusaudit/internal/validation"
)

// Query defaults.
const (
	DefaultPageSize  = 50
	DefaultStatsDays = 30
)

// QueryRequest is a validated listing request. Values outside the allowed
// ranges are rejected, never clamped.
type QueryRequest struct {
	Action   Action   `validate:"omitempty,actiontag"`
	Severity Severity `validate:"omitempty,oneof=low medium high critical"`
	ActorID  string   `validate:"max=128"`
	Search   string   `validate:"max=256"`
	Start    *time.Time
	End      *time.Time
	Page     int `validate:"gte=1"`
	PageSize int `validate:"gte=1,lte=200"`
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	Current int   `json:"current"`
	Pages   int64 `json:"pages"`
	Total   int64 `json:"total"`
}

// Page is one page of records plus its pagination envelope.
type Page struct {
	Records    []Record   `json:"logs"`
	Pagination Pagination `json:"pagination"`
}

// QueryService serves read-only views of the audit log.
type QueryService struct {
	store   Store
	now     func() time.Time
	actions *cache.Cache[[]Action]
	stats   *cache.Cache[*Stats]
}

// QueryOption configures a QueryService.
type QueryOption func(*QueryService)

// WithResultCache caches Actions and Stats results for ttl. Listings are
// never cached.
func WithResultCache(ttl time.Duration) QueryOption {
	return func(q *QueryService) {
		if ttl <= 0 {
			return
		}
		q.actions = cache.NewWithLimit[[]Action](ttl, 1)
		q.stats = cache.NewWithLimit[*Stats](ttl, 64)
	}
}

// NewQueryService creates a query service over store.
func NewQueryService(store Store, opts ...QueryOption) *QueryService {
	q := &QueryService{store: store, now: time.Now}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// InvalidateCache drops cached aggregates. Call it after deleting records.
func (q *QueryService) InvalidateCache() {
	if q.actions != nil {
		q.actions.Clear()
		q.stats.Clear()
	}
}

func cacheLookup[V any](c *cache.Cache[V], key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	v, ok := c.Get(key)
	if ok {
		metrics.QueryCacheLookups.WithLabelValues("hit").Inc()
	} else {
		metrics.QueryCacheLookups.WithLabelValues("miss").Inc()
	}
	return v, ok
}

// Validate checks req and returns an ErrInvalidFilter error describing
// every problem found.
func (req *QueryRequest) Validate() error {
	if verr := validation.ValidateStruct(req); verr != nil {
		return invalidFilter("%s", verr.Error())
	}
	if err := checkPage(req.Page, req.PageSize); err != nil {
		return err
	}
	if req.Start != nil && req.End != nil && req.Start.After(*req.End) {
		return invalidFilter("startDate must not be after endDate")
	}
	return nil
}

// List returns the requested page, newest first.
func (q *QueryService) List(ctx context.Context, req QueryRequest) (*Page, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	filter := Filter{
		Action:   req.Action,
		Severity: req.Severity,
		ActorID:  req.ActorID,
		Start:    req.Start,
		End:      req.End,
		Search:   req.Search,
	}

	records, total, err := q.store.Query(ctx, filter, req.Page, req.PageSize)
	if err != nil {
		return nil, storageErr("list audit records", err)
	}
	if records == nil {
		records = []Record{}
	}

	pageSize := int64(req.PageSize)
	return &Page{
		Records: records,
		Pagination: Pagination{
			Current: req.Page,
			Pages:   (total + pageSize - 1) / pageSize,
			Total:   total,
		},
	}, nil
}

// Actions returns every action present in the log.
func (q *QueryService) Actions(ctx context.Context) ([]Action, error) {
	if cached, ok := cacheLookup(q.actions, "actions"); ok {
		return slices.Clone(cached), nil
	}
	actions, err := q.store.DistinctActions(ctx)
	if err != nil {
		return nil, storageErr("distinct actions", err)
	}
	if actions == nil {
		actions = []Action{}
	}
	if q.actions != nil {
		q.actions.Set("actions", slices.Clone(actions))
	}
	return actions, nil
}

// Stats aggregates the last days days of records.
func (q *QueryService) Stats(ctx context.Context, days int) (*Stats, error) {
	if days < 1 || days > MaxWindowDays {
		return nil, invalidFilter("days must be between 1 and %d, got %d", MaxWindowDays, days)
	}
	key := cache.GenerateKey("stats", days)
	if cached, ok := cacheLookup(q.stats, key); ok {
		return cached, nil
	}
	since := windowStart(q.now(), days)
	stats, err := q.store.Stats(ctx, since)
	if err != nil {
		return nil, storageErr("stats", err)
	}
	if q.stats != nil {
		q.stats.Set(key, stats)
	}
	return stats, nil
}

// ParseQueryRequest builds a QueryRequest from URL query parameters:
// page, limit, action, severity, user, startDate, endDate and search.
// Dates are RFC 3339 or YYYY-MM-DD; a bare endDate covers the whole day.
// The result is not validated; List does that.
func ParseQueryRequest(v url.Values) (QueryRequest, error) {
	req := QueryRequest{
		Action:   Action(strings.TrimSpace(v.Get("action"))),
		Severity: Severity(strings.TrimSpace(v.Get("severity"))),
		ActorID:  strings.TrimSpace(v.Get("user")),
		Search:   v.Get("search"),
		Page:     1,
		PageSize: DefaultPageSize,
	}

	var err error
	if req.Page, err = parseIntParam(v, "page", 1); err != nil {
		return req, err
	}
	if req.PageSize, err = parseIntParam(v, "limit", DefaultPageSize); err != nil {
		return req, err
	}
	if req.Start, err = parseDateParam(v, "startDate", false); err != nil {
		return req, err
	}
	if req.End, err = parseDateParam(v, "endDate", true); err != nil {
		return req, err
	}
	return req, nil
}

// ParseDays reads a positive day count, defaulting to def.
func ParseDays(v url.Values, def int) (int, error) {
	return parseIntParam(v, "days", def)
}

func parseIntParam(v url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidFilter("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

func parseDateParam(v url.Values, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, invalidFilter("%s must be an RFC 3339 timestamp or YYYY-MM-DD date, got %q", name, raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// Ping checks that the store answers a minimal query.
func (q *QueryService) Ping(ctx context.Context) error {
	if _, _, err := q.store.Query(ctx, Filter{}, 1, 1); err != nil {
		return storageErr("ping store", err)
	}
	return nil
}
