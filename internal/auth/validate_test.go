package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidEmail(t *testing.T) {
	assert.True(t, validEmail("alice@example.com"))
	assert.True(t, validEmail("a.b+tag@sub.example.com"))
	assert.False(t, validEmail(""))
	assert.False(t, validEmail("not-an-email"))
	assert.False(t, validEmail("@example.com"))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, validateUsername("alice"))
	assert.NoError(t, validateUsername("a_b-c.d"))
	assert.Error(t, validateUsername("ab"))
	assert.Error(t, validateUsername("user name"))
	assert.Error(t, validateUsername("user@name"))
	assert.Error(t, validateUsername(string(make([]byte, 40))))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, validatePassword("Sup3r-secret"))

	cases := map[string]string{
		"too short":  "S3cr-t",
		"no upper":   "sup3r-secret",
		"no lower":   "SUP3R-SECRET",
		"no digit":   "Super-secret",
		"no special": "Sup3rsecret",
	}
	for name, pw := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, validatePassword(pw))
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABC12-DEF34", normalizeCode(" abc12-def34 "))
	assert.Equal(t, "", normalizeCode("   "))
}
