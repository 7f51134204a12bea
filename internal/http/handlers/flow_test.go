package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bhoomi-id/bhoomi/internal/app"
	"github.com/bhoomi-id/bhoomi/internal/audit"
	"github.com/bhoomi-id/bhoomi/internal/cache"
	"github.com/bhoomi-id/bhoomi/internal/config"
	"github.com/bhoomi-id/bhoomi/internal/consent"
	"github.com/bhoomi-id/bhoomi/internal/credential"
	"github.com/bhoomi-id/bhoomi/internal/email"
	httpx "github.com/bhoomi-id/bhoomi/internal/http"
	"github.com/bhoomi-id/bhoomi/internal/projector"
	"github.com/bhoomi-id/bhoomi/internal/registry"
	"github.com/bhoomi-id/bhoomi/internal/requests"
	"github.com/bhoomi-id/bhoomi/internal/security/secretbox"
	"github.com/bhoomi-id/bhoomi/internal/store/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.Container) {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Env = "dev"
	cfg.Credential.Issuer = "bhoomi-test"
	cfg.Credential.TTL = "30m"
	cfg.OTP.TTL = "10m"
	cfg.Security.PasswordMinLength = 8

	repo := memory.New()
	cch, err := cache.New(cache.Config{Kind: "memory"})
	require.NoError(t, err)

	issuer, err := credential.NewIssuer(bytes.Repeat([]byte{42}, 32), cfg.Credential.Issuer, 0)
	require.NoError(t, err)
	box, err := secretbox.NewFromRaw(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	audits := audit.New(repo)
	ledger := consent.New(repo)
	c := &app.Container{
		Cfg:       cfg,
		Store:     repo,
		Cache:     cch,
		Issuer:    issuer,
		Box:       box,
		Registry:  registry.New(repo),
		Ledger:    ledger,
		Projector: projector.New(repo, ledger, audits, box),
		Audits:    audits,
		Requests:  requests.New(repo, ledger, audits),
		Email:     email.EchoSender{},
	}

	srv := httptest.NewServer(httpx.NewRouter(c))
	t.Cleanup(srv.Close)
	return srv, c
}

func doJSON(t *testing.T, method, url, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	return resp, out
}

func TestConsentLifecycleOverHTTP(t *testing.T) {
	srv, c := newTestServer(t)
	ctx := context.Background()

	// alta de service
	resp, svcOut := doJSON(t, http.MethodPost, srv.URL+"/v1/services", "", map[string]any{
		"name":   "AgroBank",
		"scopes": []string{"profile", "aadhaar"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	clientID := svcOut["client_id"].(string)
	require.NotEmpty(t, clientID)

	// registro del subject con aadhaar cifrado
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/auth/register", "", map[string]any{
		"full_name":      "Asha",
		"phone_number":   "+911234567890",
		"password":       "secret-pass-1",
		"aadhaar_number": "1234-5678-9012",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// el OTP quedó en cache; lo leemos directo para verificar la cuenta
	code, err := c.Cache.Get(ctx, "otp:+911234567890")
	require.NoError(t, err)
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/auth/verify-otp", "", map[string]any{
		"phone_number": "+911234567890",
		"code":         code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// login
	resp, loginOut := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/login", "", map[string]any{
		"phone_number": "+911234567890",
		"password":     "secret-pass-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	subjectToken := loginOut["access_token"].(string)

	// preflight: scope fuera de la allow-list del service
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/authorize?client_id="+clientID+"&scope=profile+location", nil)
	req.Header.Set("Authorization", "Bearer "+subjectToken)
	r2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	r2.Body.Close()
	require.Equal(t, http.StatusForbidden, r2.StatusCode)

	// grant profile+aadhaar → credential para el service
	resp, grantOut := doJSON(t, http.MethodPost, srv.URL+"/v1/consents", subjectToken, map[string]any{
		"client_id": clientID,
		"scopes":    []string{"profile", "aadhaar"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	svcToken := grantOut["access_token"].(string)
	require.NotEmpty(t, svcToken)

	// proyección scoped con el token del service
	resp, data := doJSON(t, http.MethodGet, srv.URL+"/v1/data", svcToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Asha", data["full_name"])
	require.Equal(t, "1234-5678-9012", data["aadhaar_number"])
	require.NotContains(t, data, "location")

	// revocación: el mismo token firmado deja de servir
	resp, revOut := doJSON(t, http.MethodDelete, srv.URL+"/v1/consents/"+clientID, subjectToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, revOut["revoked"])

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/data", svcToken, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// el trail quedó: accesos SUCCESS y DENIED, más reciente primero
	resp, logsOut := doJSON(t, http.MethodGet, srv.URL+"/v1/me/access-logs", subjectToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logs := logsOut["logs"].([]any)
	require.NotEmpty(t, logs)
	latest := logs[0].(map[string]any)
	require.Equal(t, "DENIED", latest["outcome"])
}

func TestProjectionRequiresCredential(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/data", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/data", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
