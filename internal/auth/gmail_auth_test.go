package auth

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/justsurfingit/jobapp-ai/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const clientSecret = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestGetGmailClient_MissingCredentials(t *testing.T) {
	_, err := GetGmailClient(context.Background(), config.GmailConfig{
		CredentialsFile: filepath.Join(t.TempDir(), "credential.json"),
	})
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestGetGmailClient_CachedToken(t *testing.T) {
	dir := t.TempDir()
	cfg := config.GmailConfig{
		CredentialsFile: filepath.Join(dir, "credential.json"),
		TokenFile:       filepath.Join(dir, "token.json"),
	}
	require.NoError(t, os.WriteFile(cfg.CredentialsFile, []byte(clientSecret), 0600))
	require.NoError(t, saveToken(cfg.TokenFile, &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}))

	client, err := GetGmailClient(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestGetGmailClient_BadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))

	_, err := GetGmailClient(context.Background(), config.GmailConfig{CredentialsFile: path})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, saveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r"}))

	tok, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a", tok.AccessToken)
	assert.Equal(t, "r", tok.RefreshToken)

	_, err = tokenFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestGetTokenFromWeb_NoCode(t *testing.T) {
	var out strings.Builder
	_, err := getTokenFromWeb(context.Background(), &oauth2.Config{}, strings.NewReader(""), &out)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "AUTHORIZE GMAIL ACCESS")
}
