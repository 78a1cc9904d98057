package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/horizon-etudes/backoffice-api/internal/models"
	"github.com/horizon-etudes/backoffice-api/pkg/config"
	"github.com/horizon-etudes/backoffice-api/pkg/holidays"
)

type mockBookingReader struct {
	countByDate   int
	countsPerDate map[string]int
	occupied      []string
	activeSlot    bool
}

func (m *mockBookingReader) CountOccupyingByDate(ctx context.Context, date time.Time) (int, error) {
	return m.countByDate, nil
}

func (m *mockBookingReader) CountOccupyingPerDate(ctx context.Context, from, to time.Time) (map[string]int, error) {
	return m.countsPerDate, nil
}

func (m *mockBookingReader) ListOccupiedSlots(ctx context.Context, date time.Time) ([]string, error) {
	return m.occupied, nil
}

func (m *mockBookingReader) ExistsActiveSlot(ctx context.Context, date time.Time, slot, excludeID string) (bool, error) {
	return m.activeSlot, nil
}

func newCalendarForTest(repo *mockBookingReader, closures []string) *CalendarService {
	svc := NewCalendarService(repo, holidays.NewStaticSource(closures), nil,
		config.BookingConfig{Timezone: "UTC", HorizonDays: 10, MaxPerDay: 4}, zap.NewNop())
	svc.SetNow(func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) })
	return svc
}

func TestCalendarIsBusinessDay(t *testing.T) {
	svc := newCalendarForTest(&mockBookingReader{}, []string{"2026-03-04"})
	ctx := context.Background()

	assert.True(t, svc.IsBusinessDay(ctx, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))  // Monday
	assert.False(t, svc.IsBusinessDay(ctx, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC))) // Saturday
	assert.False(t, svc.IsBusinessDay(ctx, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC))) // Sunday
	assert.False(t, svc.IsBusinessDay(ctx, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))) // closure
}

type flakyHolidaySource struct {
	calls int
	fail  int
	set   map[string]bool
	err   error
}

func (s *flakyHolidaySource) Holidays(ctx context.Context, year int) (map[string]bool, error) {
	s.calls++
	if s.calls <= s.fail {
		return map[string]bool{}, s.err
	}
	return s.set, nil
}

func TestCalendarRetriesDegradedHolidayLookup(t *testing.T) {
	src := &flakyHolidaySource{
		fail: 1,
		err:  errors.New("holiday api down"),
		set:  map[string]bool{"2026-03-04": true},
	}
	svc := NewCalendarService(&mockBookingReader{}, src, nil,
		config.BookingConfig{Timezone: "UTC", HorizonDays: 10, MaxPerDay: 4}, zap.NewNop())
	ctx := context.Background()
	closure := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	// First lookup is degraded; the empty result must not stick.
	assert.True(t, svc.IsBusinessDay(ctx, closure))
	assert.False(t, svc.IsBusinessDay(ctx, closure))
	assert.Equal(t, 2, src.calls)

	// The recovered set is memoized from then on.
	assert.False(t, svc.IsBusinessDay(ctx, closure))
	assert.Equal(t, 2, src.calls)
}

func TestCalendarListSlotsExcludesOccupied(t *testing.T) {
	repo := &mockBookingReader{occupied: []string{"09:00", "10:30"}}
	svc := newCalendarForTest(repo, nil)

	slots, err := svc.ListSlotsForDate(context.Background(), time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, slots, len(models.TimeSlots)-2)
	assert.NotContains(t, slots, "09:00")
	assert.NotContains(t, slots, "10:30")
	assert.Contains(t, slots, "16:30")
}

func TestCalendarListSlotsDropsPastSlotsToday(t *testing.T) {
	svc := newCalendarForTest(&mockBookingReader{}, nil)

	// The clock reads 08:00 on 2026-03-02; every slot is still ahead.
	today := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	slots, err := svc.ListSlotsForDate(context.Background(), today)
	require.NoError(t, err)
	assert.Len(t, slots, len(models.TimeSlots))

	svc.SetNow(func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) })
	slots, err = svc.ListSlotsForDate(context.Background(), today)
	require.NoError(t, err)
	assert.NotContains(t, slots, "09:00")
	assert.NotContains(t, slots, "12:00")
	assert.Contains(t, slots, "12:30")
}

func TestCalendarListSlotsEmptyOnWeekend(t *testing.T) {
	svc := newCalendarForTest(&mockBookingReader{}, nil)

	slots, err := svc.ListSlotsForDate(context.Background(), time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestCalendarListBookableDatesSkipsFullAndClosedDays(t *testing.T) {
	repo := &mockBookingReader{countsPerDate: map[string]int{"2026-03-03": 4}}
	svc := newCalendarForTest(repo, []string{"2026-03-05"})

	dates, err := svc.ListBookableDates(context.Background(), 7)
	require.NoError(t, err)
	// Horizon 2026-03-02..2026-03-08: the 3rd is full, the 5th closed,
	// the 7th and 8th are the weekend.
	assert.Equal(t, []string{"2026-03-02", "2026-03-04", "2026-03-06"}, dates)
}

func TestCalendarListBookableDatesClampsHorizon(t *testing.T) {
	repo := &mockBookingReader{countsPerDate: map[string]int{}}
	svc := newCalendarForTest(repo, nil)

	dates, err := svc.ListBookableDates(context.Background(), 500)
	require.NoError(t, err)
	// Clamped to the configured 10-day horizon: 2026-03-02..2026-03-11
	// minus two weekends days.
	assert.Len(t, dates, 8)
}

func TestCalendarHasCapacity(t *testing.T) {
	repo := &mockBookingReader{countByDate: 4}
	svc := newCalendarForTest(repo, nil)

	ok, err := svc.HasCapacity(context.Background(), time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)

	repo.countByDate = 3
	ok, err = svc.HasCapacity(context.Background(), time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCalendarSlotStart(t *testing.T) {
	svc := newCalendarForTest(&mockBookingReader{}, nil)

	start, err := svc.SlotStart(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), "14:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 3, 14, 30, 0, 0, time.UTC), start)

	_, err = svc.SlotStart(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), "half past two")
	require.Error(t, err)
}

func TestCalendarIsSlotFree(t *testing.T) {
	repo := &mockBookingReader{activeSlot: true}
	svc := newCalendarForTest(repo, nil)

	free, err := svc.IsSlotFree(context.Background(), time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), "10:00", "")
	require.NoError(t, err)
	assert.False(t, free)
}
