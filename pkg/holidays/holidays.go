package holidays

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DateFormat is the canonical day key used across the package.
const DateFormat = "2006-01-02"

// Source yields the non-working days of a calendar year keyed by DateFormat.
type Source interface {
	Holidays(ctx context.Context, year int) (map[string]bool, error)
}

// APISource fetches public holidays from an HTTP endpoint returning a JSON
// object keyed by date, e.g. {"2026-01-01": "1er janvier"}.
type APISource struct {
	baseURL string
	client  *http.Client
}

// NewAPISource builds an API-backed source with a bounded request timeout.
func NewAPISource(baseURL string, timeout time.Duration) *APISource {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &APISource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Holidays requests the holiday set for the given year.
func (s *APISource) Holidays(ctx context.Context, year int) (map[string]bool, error) {
	url := fmt.Sprintf("%s/%d.json", s.baseURL, year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("holidays: build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("holidays: fetch %d: %w", year, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("holidays: fetch %d: status %d", year, resp.StatusCode)
	}

	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("holidays: decode %d: %w", year, err)
	}

	set := make(map[string]bool, len(payload))
	for date := range payload {
		set[date] = true
	}
	return set, nil
}

// StaticSource serves a fixed closure list. Entries are either full dates
// ("2026-08-15") or recurring month-days ("08-15") applied to every year.
type StaticSource struct {
	full      map[string]bool
	recurring []string
}

// NewStaticSource parses the configured closure entries. Unparseable entries
// are dropped.
func NewStaticSource(entries []string) *StaticSource {
	src := &StaticSource{full: make(map[string]bool)}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
		case len(entry) == len(DateFormat):
			if _, err := time.Parse(DateFormat, entry); err == nil {
				src.full[entry] = true
			}
		case len(entry) == len("01-02"):
			if _, err := time.Parse("01-02", entry); err == nil {
				src.recurring = append(src.recurring, entry)
			}
		}
	}
	return src
}

// Holidays expands the closure list for the given year.
func (s *StaticSource) Holidays(_ context.Context, year int) (map[string]bool, error) {
	set := make(map[string]bool, len(s.full)+len(s.recurring))
	prefix := fmt.Sprintf("%04d-", year)
	for date := range s.full {
		if strings.HasPrefix(date, prefix) {
			set[date] = true
		}
	}
	for _, md := range s.recurring {
		set[prefix+md] = true
	}
	return set, nil
}

// Combined unions several sources. A failing source is logged and skipped,
// so a dead holiday API degrades to the static closure list instead of
// blocking the calendar.
type Combined struct {
	sources []Source
	logger  *zap.Logger
}

// NewCombined builds a union source over the given sources.
func NewCombined(logger *zap.Logger, sources ...Source) *Combined {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Combined{sources: sources, logger: logger}
}

// Holidays merges every reachable source. The merged set is returned even
// when a source fails; the error then reports the first failure so callers
// know the result is partial and can retry later.
func (c *Combined) Holidays(ctx context.Context, year int) (map[string]bool, error) {
	merged := make(map[string]bool)
	var firstErr error
	for _, src := range c.sources {
		set, err := src.Holidays(ctx, year)
		if err != nil {
			c.logger.Warn("holiday source unavailable", zap.Int("year", year), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for date := range set {
			merged[date] = true
		}
	}
	return merged, firstErr
}
