package util_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamefrenza/AI-Legal-Agent/pkg/util"
)

func TestGenerateAndParseRoundTrip(t *testing.T) {
	tok, err := util.GenerateJWT("user-1", util.ScopeProducer, "secret")
	require.NoError(t, err)

	identity, err := util.ParseJWT(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.RecipientID)
	assert.Equal(t, util.ScopeProducer, identity.Scope)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, err := util.GenerateJWT("user-1", util.ScopeRecipient, "secret")
	require.NoError(t, err)

	_, err = util.ParseJWT(tok, "other-secret")
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := util.ParseJWT("not.a.token", "secret")
	assert.Error(t, err)
}

func TestScopeDefaultsToRecipient(t *testing.T) {
	tok, err := util.GenerateJWT("user-1", "", "secret")
	require.NoError(t, err)

	identity, err := util.ParseJWT(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, util.ScopeRecipient, identity.Scope)
}

func TestExtractTokenSources(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/ws/notifications", nil)
	req.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", util.ExtractToken(req))

	req, _ = http.NewRequest(http.MethodGet, "/ws/notifications?token=xyz", nil)
	assert.Equal(t, "xyz", util.ExtractToken(req))

	// A malformed header does not fall through to the query parameter.
	req, _ = http.NewRequest(http.MethodGet, "/ws/notifications?token=xyz", nil)
	req.Header.Set("Authorization", "abc")
	assert.Equal(t, "", util.ExtractToken(req))

	req, _ = http.NewRequest(http.MethodGet, "/ws/notifications", nil)
	assert.Equal(t, "", util.ExtractToken(req))
}
