package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGoogle serves the device, token and userinfo endpoints
func fakeGoogle(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/device/code", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-id", r.Form.Get("client_id"))
		assert.Equal(t, "openid email profile", r.Form.Get("scope"))
		writeJSON(w, map[string]interface{}{
			"device_code":      "device-code",
			"user_code":        "ABCD-EFGH",
			"verification_uri": "https://www.google.com/device",
			"expires_in":       600,
			"interval":         1,
		})
	})

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.Form.Get("grant_type") {
		case "urn:ietf:params:oauth:grant-type:device_code":
			assert.Equal(t, "device-code", r.Form.Get("device_code"))
			writeJSON(w, map[string]interface{}{
				"access_token":  "access-1",
				"token_type":    "Bearer",
				"expires_in":    3600,
				"refresh_token": "refresh-1",
				"id_token":      "id-token-1",
			})
		case "refresh_token":
			assert.Equal(t, "refresh-1", r.Form.Get("refresh_token"))
			writeJSON(w, map[string]interface{}{
				"access_token": "access-2",
				"token_type":   "Bearer",
				"expires_in":   3600,
				"id_token":     "id-token-2",
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]string{"error": "unsupported_grant_type"})
		}
	})

	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]interface{}{
			"email":          "ada@example.com",
			"email_verified": true,
			"name":           "Ada Lovelace",
			"picture":        "https://example.com/ada.png",
		})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func testProvider(baseURL string) *GoogleProvider {
	p := NewGoogleProvider("client-id", "client-secret")
	p.config.Endpoint = oauth2.Endpoint{
		DeviceAuthURL: baseURL + "/device/code",
		TokenURL:      baseURL + "/token",
		AuthStyle:     oauth2.AuthStyleInParams,
	}
	p.userInfoURL = baseURL + "/userinfo"
	return p
}

func TestGoogleProvider_SignIn(t *testing.T) {
	ts := fakeGoogle(t)
	p := testProvider(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var prompted DeviceCode
	sess, err := p.SignIn(ctx, func(code DeviceCode) { prompted = code })
	require.NoError(t, err)

	assert.Equal(t, DeviceCode{UserCode: "ABCD-EFGH", VerificationURL: "https://www.google.com/device"}, prompted)
	assert.Equal(t, Authenticated, sess.Status)
	assert.Equal(t, Identity{
		Email:    "ada@example.com",
		Name:     "Ada Lovelace",
		Image:    "https://example.com/ada.png",
		Provider: "google",
		IDToken:  "id-token-1",
	}, sess.Identity)
	assert.Equal(t, "refresh-1", sess.RefreshToken)
	assert.False(t, sess.Expired(time.Now()))
}

func TestGoogleProvider_Refresh(t *testing.T) {
	ts := fakeGoogle(t)
	p := testProvider(ts.URL)

	sess, err := p.Refresh(context.Background(), Session{
		Status:       Authenticated,
		ExpiresAt:    time.Now().Add(-time.Hour),
		RefreshToken: "refresh-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "id-token-2", sess.Identity.IDToken)
	assert.Equal(t, "refresh-1", sess.RefreshToken, "refresh token is kept when not rotated")
	assert.False(t, sess.Expired(time.Now()))

	_, err = p.Refresh(context.Background(), Session{Status: Authenticated})
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}
