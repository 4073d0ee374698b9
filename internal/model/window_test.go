package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func w(start, end string) Window {
	s, err := ParseClock(start)
	if err != nil {
		panic(err)
	}
	e, err := ParseClock(end)
	if err != nil {
		panic(err)
	}
	return Window{Start: s, End: e}
}

func TestWindowOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Window
		want bool
	}{
		{"identical", w("10:00", "10:30"), w("10:00", "10:30"), true},
		{"partial", w("10:00", "10:30"), w("10:15", "10:45"), true},
		{"contained", w("09:00", "12:00"), w("10:00", "10:30"), true},
		{"back to back", w("10:00", "10:30"), w("10:30", "11:00"), false},
		{"back to back reversed", w("10:30", "11:00"), w("10:00", "10:30"), false},
		{"disjoint", w("08:00", "09:00"), w("10:00", "11:00"), false},
		{"until midnight", w("23:30", "24:00"), w("23:45", "24:00"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestWindowValidate(t *testing.T) {
	require.NoError(t, w("09:00", "09:30").Validate())
	require.NoError(t, w("23:00", "24:00").Validate())

	require.ErrorIs(t, w("10:00", "10:00").Validate(), ErrValidation)
	require.ErrorIs(t, w("11:00", "10:00").Validate(), ErrValidation)
	require.ErrorIs(t, Window{Start: -5, End: 30}.Validate(), ErrValidation)
	require.ErrorIs(t, Window{Start: MinutesPerDay, End: MinutesPerDay + 30}.Validate(), ErrValidation)
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:05")
	require.NoError(t, err)
	assert.Equal(t, NewClock(9, 5), c)
	assert.Equal(t, "09:05", c.String())

	c, err = ParseClock("17:30:59")
	require.NoError(t, err)
	assert.Equal(t, NewClock(17, 30), c)

	c, err = ParseClock("24:00")
	require.NoError(t, err)
	assert.Equal(t, MinutesPerDay, c)

	_, err = ParseClock("25:00")
	require.ErrorIs(t, err, ErrValidation)
	_, err = ParseClock("noon")
	require.ErrorIs(t, err, ErrValidation)
}

func TestClockJSON(t *testing.T) {
	raw, err := json.Marshal(w("08:15", "09:00"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"08:15","end":"09:00"}`, string(raw))

	var got Window
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, w("08:15", "09:00"), got)
}
