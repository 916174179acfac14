package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePinsEpochDate(t *testing.T) {
	parsed, err := Parse("08:30")
	require.NoError(t, err)
	assert.Equal(t, 1970, parsed.Year())
	assert.Equal(t, time.January, parsed.Month())
	assert.Equal(t, 1, parsed.Day())
	assert.Equal(t, 8, parsed.Hour())
	assert.Equal(t, 30, parsed.Minute())
	assert.Equal(t, "08:30", Format(parsed))
}

func TestParseRejectsMalformedValues(t *testing.T) {
	for _, value := range []string{"", "8:30:00", "24:00", "10:60", "noon"} {
		_, err := Parse(value)
		assert.Error(t, err, value)
	}
	assert.True(t, Valid("00:00"))
	assert.True(t, Valid("23:59"))
	assert.False(t, Valid("23:60"))
}

func TestCanonicalZeroPads(t *testing.T) {
	got, err := Canonical("9:00")
	require.NoError(t, err)
	assert.Equal(t, "09:00", got)

	got, err = Canonical("19:05")
	require.NoError(t, err)
	assert.Equal(t, "19:05", got)

	_, err = Canonical("9am")
	assert.Error(t, err)
}

func TestOverlapsStrict(t *testing.T) {
	// Touching boundaries are not an overlap under the strict rule.
	assert.False(t, Overlaps("10:15", "10:30", "10:30", "10:45"))
	assert.False(t, Overlaps("10:45", "11:00", "10:30", "10:45"))
	assert.True(t, Overlaps("10:20", "10:35", "10:30", "10:45"))
	assert.True(t, Overlaps("10:30", "10:45", "10:30", "10:45"))
	assert.True(t, Overlaps("10:00", "11:00", "10:30", "10:45"))
	assert.False(t, Overlaps("09:00", "10:00", "10:30", "10:45"))
}

func TestOverlapsInclusiveCountsTouchingBoundaries(t *testing.T) {
	at := func(value string) time.Time {
		parsed, err := Parse(value)
		require.NoError(t, err)
		return parsed
	}

	// The closed-interval rule flags back-to-back periods, unlike the strict
	// break-time rule above.
	assert.True(t, OverlapsInclusive(at("08:00"), at("09:00"), at("09:00"), at("10:00")))
	assert.True(t, OverlapsInclusive(at("09:00"), at("10:00"), at("08:00"), at("09:00")))
	assert.True(t, OverlapsInclusive(at("08:30"), at("09:30"), at("08:00"), at("09:00")))
	assert.False(t, OverlapsInclusive(at("08:00"), at("09:00"), at("09:01"), at("10:00")))
}

func TestMinutesBetween(t *testing.T) {
	start, err := Parse("08:00")
	require.NoError(t, err)
	end, err := Parse("09:15")
	require.NoError(t, err)
	assert.Equal(t, 75, MinutesBetween(start, end))
}
