package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", SanitizeInput("  hello  "))
	assert.Equal(t, "&lt;script&gt;alert(1)&lt;/script&gt;", SanitizeInput("<script>alert(1)</script>"))
	assert.Equal(t, "Tom &amp; Jerry", SanitizeInput("Tom & Jerry"))
}

func TestValidatePasswordStrength(t *testing.T) {
	ok, problems := ValidatePasswordStrength("Sunny4Days")
	assert.True(t, ok)
	assert.Empty(t, problems)

	cases := []string{
		"short1A",        // too short
		"alllowercase1",  // no uppercase
		"ALLUPPERCASE1",  // no lowercase
		"NoDigitsHere",   // no digit
	}
	for _, password := range cases {
		ok, problems := ValidatePasswordStrength(password)
		assert.False(t, ok, password)
		assert.NotEmpty(t, problems, password)
	}
}
