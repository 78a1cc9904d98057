package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/horizon-etudes/backoffice-api/internal/models"
	"github.com/horizon-etudes/backoffice-api/pkg/config"
	"github.com/horizon-etudes/backoffice-api/pkg/holidays"
)

const (
	cacheKeySlotsPrefix = "availability:slots:"
	cacheKeyDates       = "availability:dates"
	availabilityPattern = "availability:*"
)

type calendarBookingReader interface {
	CountOccupyingByDate(ctx context.Context, date time.Time) (int, error)
	CountOccupyingPerDate(ctx context.Context, from, to time.Time) (map[string]int, error)
	ListOccupiedSlots(ctx context.Context, date time.Time) ([]string, error)
	ExistsActiveSlot(ctx context.Context, date time.Time, slot, excludeID string) (bool, error)
}

// CalendarService answers which dates and slots are bookable. It is
// read-only: holiday lookups that fail degrade to the static closure list
// and are never surfaced to callers.
type CalendarService struct {
	repo     calendarBookingReader
	holidays holidays.Source
	cache    *CacheService
	cfg      config.BookingConfig
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger

	mu       sync.Mutex
	yearSets map[int]map[string]bool
}

// NewCalendarService builds the slot calendar.
func NewCalendarService(repo calendarBookingReader, src holidays.Source, cache *CacheService, cfg config.BookingConfig, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("invalid booking timezone, falling back to UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.UTC
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 60
	}
	if cfg.MaxPerDay <= 0 {
		cfg.MaxPerDay = len(models.TimeSlots)
	}
	return &CalendarService{
		repo:     repo,
		holidays: src,
		cache:    cache,
		cfg:      cfg,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
		yearSets: make(map[int]map[string]bool),
	}
}

// Location returns the agency's business timezone.
func (s *CalendarService) Location() *time.Location {
	return s.loc
}

// Now returns the current instant in the business timezone.
func (s *CalendarService) Now() time.Time {
	return s.now().In(s.loc)
}

// SetNow overrides the clock. Tests only.
func (s *CalendarService) SetNow(now func() time.Time) {
	s.now = now
}

// IsBusinessDay reports whether the agency is open on the given date:
// weekdays that are neither public holidays nor agency closures.
func (s *CalendarService) IsBusinessDay(ctx context.Context, date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !s.holidaySet(ctx, date.Year())[date.Format(models.DateFormat)]
}

// ListSlotsForDate returns the bookable slots of a date: the fixed slot
// table minus occupied slots, minus already-started slots when the date is
// today. Non-business days have no slots.
func (s *CalendarService) ListSlotsForDate(ctx context.Context, date time.Time) ([]string, error) {
	if !s.IsBusinessDay(ctx, date) {
		return []string{}, nil
	}

	cacheKey := cacheKeySlotsPrefix + date.Format(models.DateFormat)

	var cached []string
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return s.dropPastSlots(cached, date), nil
	}

	occupied, err := s.repo.ListOccupiedSlots(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list occupied slots: %w", err)
	}
	taken := make(map[string]bool, len(occupied))
	for _, slot := range occupied {
		taken[slot] = true
	}

	free := make([]string, 0, len(models.TimeSlots))
	for _, slot := range models.TimeSlots {
		if !taken[slot] {
			free = append(free, slot)
		}
	}

	_ = s.cache.Set(ctx, cacheKey, free, 0)

	return s.dropPastSlots(free, date), nil
}

// ListBookableDates returns every date inside the horizon that is a
// business day with remaining capacity.
func (s *CalendarService) ListBookableDates(ctx context.Context, horizonDays int) ([]string, error) {
	if horizonDays <= 0 || horizonDays > s.cfg.HorizonDays {
		horizonDays = s.cfg.HorizonDays
	}

	cacheKey := fmt.Sprintf("%s:%d", cacheKeyDates, horizonDays)
	var cached []string
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	today := s.startOfDay(s.Now())
	last := today.AddDate(0, 0, horizonDays-1)

	counts, err := s.repo.CountOccupyingPerDate(ctx, today, last)
	if err != nil {
		return nil, fmt.Errorf("count occupying per date: %w", err)
	}

	dates := make([]string, 0, horizonDays)
	for day := today; !day.After(last); day = day.AddDate(0, 0, 1) {
		if !s.IsBusinessDay(ctx, day) {
			continue
		}
		if counts[day.Format(models.DateFormat)] >= s.cfg.MaxPerDay {
			continue
		}
		dates = append(dates, day.Format(models.DateFormat))
	}

	_ = s.cache.Set(ctx, cacheKey, dates, 0)

	return dates, nil
}

// HorizonDays returns the configured booking horizon.
func (s *CalendarService) HorizonDays() int {
	return s.cfg.HorizonDays
}

// IsSlotFree reports whether the exact (date, slot) is unoccupied,
// optionally ignoring one appointment id when re-validating an update.
func (s *CalendarService) IsSlotFree(ctx context.Context, date time.Time, slot, excludeID string) (bool, error) {
	taken, err := s.repo.ExistsActiveSlot(ctx, date, slot, excludeID)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return !taken, nil
}

// HasCapacity reports whether the date still accepts bookings.
func (s *CalendarService) HasCapacity(ctx context.Context, date time.Time) (bool, error) {
	count, err := s.repo.CountOccupyingByDate(ctx, date)
	if err != nil {
		return false, fmt.Errorf("count occupancy: %w", err)
	}
	return count < s.cfg.MaxPerDay, nil
}

// SlotStart combines a date and slot into a zoned instant.
func (s *CalendarService) SlotStart(date time.Time, slot string) (time.Time, error) {
	parsed, err := time.Parse(models.SlotFormat, slot)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot %q: %w", slot, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, s.loc), nil
}

// InvalidateAvailability drops the cached slot and date listings. Called
// after every appointment write.
func (s *CalendarService) InvalidateAvailability(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, availabilityPattern); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.Error(err))
	}
}

func (s *CalendarService) dropPastSlots(slots []string, date time.Time) []string {
	now := s.Now()
	if date.Format(models.DateFormat) != now.Format(models.DateFormat) {
		return slots
	}
	remaining := make([]string, 0, len(slots))
	for _, slot := range slots {
		start, err := s.SlotStart(date, slot)
		if err != nil {
			continue
		}
		if start.After(now) {
			remaining = append(remaining, slot)
		}
	}
	return remaining
}

func (s *CalendarService) startOfDay(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, s.loc)
}

func (s *CalendarService) holidaySet(ctx context.Context, year int) map[string]bool {
	s.mu.Lock()
	set, ok := s.yearSets[year]
	s.mu.Unlock()
	if ok {
		return set
	}

	set, err := s.holidays.Holidays(ctx, year)
	if err != nil {
		// Partial result (the combined source folds in the static closure
		// list when the public API is down): serve it for this call but
		// keep it out of the memo so the next lookup retries.
		s.logger.Warn("holiday lookup degraded", zap.Int("year", year), zap.Error(err))
		if set == nil {
			set = map[string]bool{}
		}
		return set
	}

	s.mu.Lock()
	s.yearSets[year] = set
	s.mu.Unlock()
	return set
}
