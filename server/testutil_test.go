package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gochat/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, _, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(Options{Store: store, JWTSecret: "test-secret", Quiet: true})
}

// doJSON runs one request against the fiber app and decodes the JSON
// response into a generic map. A list response comes back under "_list".
func doJSON(t *testing.T, srv *Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, path, err)
	}
	switch v := decoded.(type) {
	case map[string]any:
		return resp.StatusCode, v
	case []any:
		return resp.StatusCode, map[string]any{"_list": v}
	default:
		t.Fatalf("%s %s: unexpected response shape %T", method, path, decoded)
		return 0, nil
	}
}

// signupAndLogin registers a user and returns its token and id.
func signupAndLogin(t *testing.T, srv *Server, username string) (string, int64) {
	t.Helper()
	creds := map[string]string{"username": username, "password": "secret"}
	if status, _ := doJSON(t, srv, http.MethodPost, "/api/signup", "", creds); status != http.StatusOK {
		t.Fatalf("signup %s: status %d", username, status)
	}
	status, body := doJSON(t, srv, http.MethodPost, "/api/login", "", creds)
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d", username, status)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("login %s: no token in response %v", username, body)
	}
	id, _ := body["user_id"].(float64)
	return token, int64(id)
}
