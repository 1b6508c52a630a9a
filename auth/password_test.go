package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("pw123456")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", hash)
	assert.NoError(t, CheckPassword(hash, "pw123456"))
	assert.Error(t, CheckPassword(hash, "pw1234567"))
	assert.Error(t, CheckPassword("", ""))

	_, err = HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestValidatePassword(t *testing.T) {
	type testCase struct {
		password  string
		minLength int
		valid     bool
	}
	tests := []testCase{
		{"pw123456", 8, true},
		{"pw12345", 8, false},
		{"", 8, false},
		{"äöüäöüäö", 8, true},
		{"short", 0, false},
		{"abc", 3, true},
	}
	for _, tc := range tests {
		t.Run(tc.password, func(t *testing.T) {
			err := ValidatePassword(tc.password, tc.minLength)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCleanEmail(t *testing.T) {
	assert.Equal(t, "u@x.com", CleanEmail("  U@X.com "))
}
