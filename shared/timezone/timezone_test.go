package timezone_test

import (
	"roombook/shared/timezone"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimezoneInit(t *testing.T) {
	now := timezone.Now()
	if now.IsZero() {
		t.Error("Now() returned zero time")
	}

	loc := timezone.GetLocation()
	if loc == nil {
		t.Error("GetLocation() returned nil")
	}
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "rfc3339", value: "2024-01-01T09:00:00Z"},
		{name: "rfc3339 with offset", value: "2024-01-01T09:00:00-04:00"},
		{name: "local seconds", value: "2024-01-01T09:00:00"},
		{name: "local minutes", value: "2024-01-01T09:00"},
		{name: "date only", value: "2024-01-01", wantErr: true},
		{name: "garbage", value: "tomorrow", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := timezone.ParseDateTime(tt.value)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.False(t, parsed.IsZero())
		})
	}

	local, err := timezone.ParseDateTime("2024-01-01T09:30")
	require.NoError(t, err)
	assert.Equal(t, timezone.GetLocation(), local.Location())
	assert.Equal(t, 9, local.Hour())
	assert.Equal(t, 30, local.Minute())
}

func TestDayBoundaries(t *testing.T) {
	loc := timezone.GetLocation()
	moment := time.Date(2024, 3, 10, 15, 45, 12, 0, loc)

	start := timezone.StartOfDay(moment)
	end := timezone.EndOfDay(moment)

	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, loc), start)
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())
	assert.Equal(t, 59, end.Second())
	assert.Equal(t, 10, end.Day())
}

func TestTimezoneFormat(t *testing.T) {
	testTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	formatted := timezone.Format(testTime, "2006-01-02 15:04:05 MST")

	if formatted == "" {
		t.Error("Format() returned empty string")
	}

	parsed, err := timezone.Parse("2006-01-02", "2024-01-01")
	if err != nil {
		t.Errorf("Parse() failed: %v", err)
	}

	if parsed == (time.Time{}) {
		t.Error("Parse() returned a zero time")
	}
}
