package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidPushToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"empty", "", false},
		{"too short", "abc", false},
		{"whitespace padded short", "   abc     ", false},
		{"exact minimum", "0123456789", true},
		{"fcm shaped", "fcm:APA91bHun4MxP5egoKMwt2KZFBaFUH-1RYqx", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidPushToken(tt.token))
		})
	}
}

func TestIsValidStationID(t *testing.T) {
	assert.True(t, IsValidStationID("21"))
	assert.False(t, IsValidStationID(""))
	assert.False(t, IsValidStationID("21a"))
	assert.False(t, IsValidStationID("../21"))
}

func TestIsISODate(t *testing.T) {
	assert.True(t, IsISODate("2025-09-10"))
	assert.False(t, IsISODate("n0"))
	assert.False(t, IsISODate("2025-13-01"))
	assert.False(t, IsISODate("10/09/2025"))
}

func TestIsClockTime(t *testing.T) {
	assert.True(t, IsClockTime("08:00"))
	assert.True(t, IsClockTime("08:00:00"))
	assert.False(t, IsClockTime("8:00"))
	assert.False(t, IsClockTime("a3f9c2"))
	assert.False(t, IsClockTime("24:00"))
}

func TestTrimAndValidate(t *testing.T) {
	v, ok := TrimAndValidate("  21 ")
	assert.True(t, ok)
	assert.Equal(t, "21", v)

	_, ok = TrimAndValidate("   ")
	assert.False(t, ok)
	assert.False(t, IsNotEmpty(" \t"))
}
