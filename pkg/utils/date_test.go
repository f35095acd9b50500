package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	late := time.Date(2025, 3, 10, 23, 30, 0, 0, manila)

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), DateOf(late))
	// the same instant is already the next day in Manila
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), DateOf(time.Date(2025, 3, 10, 16, 30, 0, 0, time.UTC).In(manila)))
}

func TestToday(t *testing.T) {
	now := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), Today(now, nil))
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), Today(now, time.FixedZone("PHT", 8*3600)))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2025-04-06 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 6, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("2025-04-06T22:15:00+08:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 6, 0, 0, 0, 0, time.UTC), got)

	for _, bad := range []string{"", "06/04/2025", "2025-13-01", "tomorrow"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2025-04-06", FormatDate(time.Date(2025, 4, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", FormatDate(time.Time{}))
}
