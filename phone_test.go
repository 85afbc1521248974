package tripauth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tourgether/tripauth"
)

func TestFormatPhoneNumber(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{"local with separators", "010-1234-5678", "+821012345678"},
		{"local without separators", "01012345678", "+821012345678"},
		{"already international", "+15551234567", "+15551234567"},
		{"international without plus gets double prefix", "15551234567", "+8215551234567"},
		{"spaces and parens stripped", "(010) 1234 5678", "+821012345678"},
		{"empty input", "", "+82"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tripauth.FormatPhoneNumber(tc.input, "82"))
		})
	}
}

func TestFormatPhoneNumberDefaultsCountryCode(t *testing.T) {
	assert.Equal(t, "+821012345678", tripauth.FormatPhoneNumber("010-1234-5678", ""))
}

func TestFormatPhoneNumberCustomCountryCode(t *testing.T) {
	assert.Equal(t, "+11012345678", tripauth.FormatPhoneNumber("010-1234-5678", "1"))
}

func TestPlausiblePhoneNumber(t *testing.T) {
	assert.True(t, tripauth.PlausiblePhoneNumber("+821012345678"))
	assert.False(t, tripauth.PlausiblePhoneNumber("+82"))
	assert.False(t, tripauth.PlausiblePhoneNumber("not-a-number"))
}
