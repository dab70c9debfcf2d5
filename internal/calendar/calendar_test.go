package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(ISODate, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "iso", in: "2025-09-17", want: "2025-09-17"},
		{name: "day first slashes", in: "17/09/2025", want: "2025-09-17"},
		{name: "display format", in: "17 Sep 2025", want: "2025-09-17"},
		{name: "surrounding spaces", in: "  2025-09-17 ", want: "2025-09-17"},
		{name: "empty", in: "", wantErr: true},
		{name: "garbage", in: "yesterday", wantErr: true},
		{name: "month out of range", in: "2025-13-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, Format(got))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestBusinessDays(t *testing.T) {
	cal := New(time.UTC, []time.Time{day("2025-12-25")})

	assert.True(t, cal.IsBusinessDay(day("2025-09-19")))  // Friday
	assert.False(t, cal.IsBusinessDay(day("2025-09-20"))) // Saturday
	assert.False(t, cal.IsBusinessDay(day("2025-12-25")))

	assert.Equal(t, "2025-09-18", Format(cal.Previous(day("2025-09-19"))))
	assert.Equal(t, "2025-09-19", Format(cal.Previous(day("2025-09-22")))) // Monday -> Friday
	assert.Equal(t, "2025-09-22", Format(cal.Next(day("2025-09-19"))))
	assert.Equal(t, "2025-12-26", Format(cal.Next(day("2025-12-24"))))
	assert.Equal(t, "2025-09-17", Format(cal.AddBusinessDays(day("2025-09-17"), 0)))
	assert.Equal(t, "2025-09-24", Format(cal.AddBusinessDays(day("2025-09-17"), 5)))
}

func TestCurrent(t *testing.T) {
	sgt, err := time.LoadLocation("Asia/Singapore")
	require.NoError(t, err)
	cal := New(sgt, nil)

	// 2025-09-18 23:30 UTC is already Friday 19th in Singapore.
	now := time.Date(2025, 9, 18, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-09-19", Format(cal.Current(now, 0)))
	assert.Equal(t, "2025-09-18", Format(cal.Current(now, 1)))

	// Sunday rolls back to Friday.
	sunday := time.Date(2025, 9, 21, 5, 0, 0, 0, sgt)
	assert.Equal(t, "2025-09-19", Format(cal.Current(sunday, 0)))
	assert.Equal(t, "2025-09-18", Format(cal.Current(sunday, 1)))
}
