package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCredentialValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		credential Credential
		wantErr    string
	}{
		{
			name:       "valid token",
			credential: Credential{ID: "k1", Token: "AIza-real"},
		},
		{
			name:       "valid secret ref",
			credential: Credential{ID: "k1", SecretRef: "gemini/k1"},
		},
		{
			name:       "missing id",
			credential: Credential{Token: "AIza-real"},
			wantErr:    "id is required",
		},
		{
			name:       "missing token and ref",
			credential: Credential{ID: "k1"},
			wantErr:    "token or secret ref is required",
		},
		{
			name:       "flagged placeholder needs nothing",
			credential: Credential{ID: "k1", Placeholder: true},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.credential.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestCredentialIsPlaceholder(t *testing.T) {
	t.Parallel()

	for _, token := range []string{"", "  ", "YOUR_API_KEY", "your_key", "<gemini-key>", "changeme", "AIzaYOUR_KEY_HERE"} {
		assert.True(t, Credential{ID: "k", Token: token}.IsPlaceholder(), token)
	}
	assert.False(t, Credential{ID: "k", Token: "AIzaSyRealLookingToken"}.IsPlaceholder())
	assert.True(t, Credential{ID: "k", Token: "AIzaSyRealLookingToken", Placeholder: true}.IsPlaceholder())
}

func TestNormalizeCredentialsDeduplicatesAndDropsEmpty(t *testing.T) {
	t.Parallel()

	got := NormalizeCredentials([]Credential{
		{ID: "1", Token: "a"},
		{ID: "", Token: "b"},
		{ID: "2", Token: " a "},
		{ID: "1", Token: "c"},
		{ID: " 3 ", Token: "d"},
		{ID: "4", SecretRef: "ref-only"},
	})

	assert.Equal(t, []Credential{
		{ID: "1", Token: "a"},
		{ID: "3", Token: "d"},
		{ID: "4", SecretRef: "ref-only"},
	}, got)
}

func TestCredentialLabelHidesToken(t *testing.T) {
	t.Parallel()

	c := Credential{ID: "k1", Name: "primary", Token: "secret-token"}
	assert.Equal(t, "primary (k1)", c.Label())
	assert.NotContains(t, c.Label(), "secret-token")
	assert.Equal(t, DefaultSessionKey, NormalizeSessionKey(""))
	assert.Equal(t, "abc", NormalizeSessionKey("abc"))
}
