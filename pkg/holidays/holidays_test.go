package holidays

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPISourceFetchesYear(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2026.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"2026-01-01": "1er janvier", "2026-05-01": "Fête du Travail"}`))
	}))
	defer server.Close()

	src := NewAPISource(server.URL, time.Second)
	set, err := src.Holidays(context.Background(), 2026)
	require.NoError(t, err)
	assert.True(t, set["2026-01-01"])
	assert.True(t, set["2026-05-01"])
	assert.Len(t, set, 2)
}

func TestAPISourceStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	src := NewAPISource(server.URL, time.Second)
	_, err := src.Holidays(context.Background(), 2026)
	require.Error(t, err)
}

func TestStaticSourceExpandsEntries(t *testing.T) {
	src := NewStaticSource([]string{"2026-08-15", "12-25", "2025-01-01", "garbage", ""})

	set, err := src.Holidays(context.Background(), 2026)
	require.NoError(t, err)
	assert.True(t, set["2026-08-15"])
	assert.True(t, set["2026-12-25"])
	assert.False(t, set["2025-01-01"], "full dates only apply to their own year")
	assert.Len(t, set, 2)

	previous, err := src.Holidays(context.Background(), 2025)
	require.NoError(t, err)
	assert.True(t, previous["2025-01-01"])
	assert.True(t, previous["2025-12-25"])
}

func TestCombinedMergesSources(t *testing.T) {
	combined := NewCombined(nil,
		NewStaticSource([]string{"2026-01-01"}),
		NewStaticSource([]string{"2026-05-01"}),
	)

	set, err := combined.Holidays(context.Background(), 2026)
	require.NoError(t, err)
	assert.True(t, set["2026-01-01"])
	assert.True(t, set["2026-05-01"])
}

func TestCombinedFallsBackToStaticWhenAPIDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	combined := NewCombined(nil,
		NewAPISource(server.URL, time.Second),
		NewStaticSource([]string{"2026-08-15"}),
	)

	set, err := combined.Holidays(context.Background(), 2026)
	require.Error(t, err, "a dead source must be reported so callers can retry")
	assert.True(t, set["2026-08-15"], "the static closure list still applies")
}
