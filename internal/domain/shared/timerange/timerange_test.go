package timerange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRange(t *testing.T, startHour, endHour int) Range {
	t.Helper()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	r, err := New(day.Add(time.Duration(startHour)*time.Hour), day.Add(time.Duration(endHour)*time.Hour))
	require.NoError(t, err)
	return r
}

func TestNewRejectsInvalid(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := New(at, at)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(at, at.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, at)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestOverlaps(t *testing.T) {
	base := mustRange(t, 9, 11)

	assert.True(t, base.Overlaps(mustRange(t, 10, 12)))
	assert.True(t, base.Overlaps(mustRange(t, 8, 10)))
	assert.True(t, base.Overlaps(mustRange(t, 9, 11)))
	assert.True(t, base.Overlaps(mustRange(t, 8, 12)))
	assert.True(t, base.Overlaps(mustRange(t, 10, 11)))

	// Half-open intervals: back-to-back slots sharing a boundary do not clash.
	assert.False(t, base.Overlaps(mustRange(t, 11, 13)))
	assert.False(t, base.Overlaps(mustRange(t, 7, 9)))
	assert.False(t, base.Overlaps(mustRange(t, 12, 14)))
}

func TestContains(t *testing.T) {
	r := mustRange(t, 9, 11)
	assert.True(t, r.Contains(r.Start))
	assert.True(t, r.Contains(r.Start.Add(time.Hour)))
	assert.False(t, r.Contains(r.End))
	assert.False(t, r.Contains(r.Start.Add(-time.Second)))
}

func TestNewNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	start := time.Date(2026, 3, 10, 11, 0, 0, 0, loc)
	r, err := New(start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, r.Start.Location())
	assert.Equal(t, 9, r.Start.Hour())
}
