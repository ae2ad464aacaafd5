package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidDNI(t *testing.T) {
	valid := []string{
		"12345678Z",
		"00000000A",
		"87654321X",
		"11111111H",
		"99999999T",
		"55555555J",
	}
	for _, dni := range valid {
		assert.True(t, ValidDNI(dni), "should accept %q", dni)
	}

	invalid := []string{
		"",
		"12345678",   // missing letter
		"1234567Z",   // too few digits
		"123456789Z", // too many digits
		"12345678I",  // excluded letter
		"12345678O",  // excluded letter
		"12345678U",  // excluded letter
		"12345678z",  // lowercase
		"A2345678Z",
		"12345678ZZ",
		" 12345678Z",
		"12345678Z ",
		"12.45678Z",
	}
	for _, dni := range invalid {
		assert.False(t, ValidDNI(dni), "should reject %q", dni)
	}
}
