package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func hashB64(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(hash)
}

func testManager(t *testing.T, password, token string) *Manager {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hash := ""
	if password != "" {
		hash = hashB64(t, password)
	}
	return newManager(ctx, hash, token)
}

func postPassword(m *Manager, password, remote string) *httptest.ResponseRecorder {
	form := url.Values{"password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	m.HandleToken(rec, req)
	return rec
}

func TestManagerDisabled(t *testing.T) {
	m := testManager(t, "", "")
	if m.Enabled() || m.PasswordEnabled() {
		t.Fatal("manager without credentials should be disabled")
	}
	if m.ValidateToken("") || m.ValidateToken("anything") {
		t.Error("no token should validate without sessions")
	}

	called := false
	rec := httptest.NewRecorder()
	m.RequireToken(func(http.ResponseWriter, *http.Request) { called = true })(rec, httptest.NewRequest(http.MethodGet, "/printers", nil))
	if !called {
		t.Error("RequireToken should pass through when disabled")
	}
}

func TestStaticToken(t *testing.T) {
	m := testManager(t, "", "s3cret")
	if !m.Enabled() {
		t.Fatal("static token should enable auth")
	}
	if !m.ValidateToken("s3cret") {
		t.Error("static token rejected")
	}
	if m.ValidateToken("s3cre") || m.ValidateToken("") {
		t.Error("wrong token accepted")
	}
}

func TestPasswordExchange(t *testing.T) {
	m := testManager(t, "hunter2", "")

	rec := postPassword(m, "hunter2", "10.0.0.1:5555")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}
	var resp TokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Token) != 64 || resp.ExpiresIn != int(SessionDuration.Seconds()) {
		t.Errorf("unexpected response %+v", resp)
	}
	if !m.ValidateToken(resp.Token) {
		t.Error("issued token does not validate")
	}

	req := httptest.NewRequest(http.MethodGet, "/printers", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec = httptest.NewRecorder()
	m.RequireToken(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })(rec, req)
	if rec.Code != http.StatusTeapot {
		t.Errorf("authorized request got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	m.RequireToken(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })(rec, httptest.NewRequest(http.MethodGet, "/printers", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous request got %d", rec.Code)
	}
}

func TestLockout(t *testing.T) {
	m := testManager(t, "hunter2", "")
	const remote = "10.0.0.9:1234"

	for i := 0; i < MaxLoginAttempts; i++ {
		if rec := postPassword(m, "wrong", remote); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d", i, rec.Code)
		}
	}
	if !m.IsLockedOut("10.0.0.9") {
		t.Fatal("IP should be locked out")
	}
	if rec := postPassword(m, "hunter2", remote); rec.Code != http.StatusTooManyRequests {
		t.Errorf("locked out login got %d", rec.Code)
	}
	if rec := postPassword(m, "hunter2", "10.0.0.10:1234"); rec.Code != http.StatusOK {
		t.Errorf("other IP got %d", rec.Code)
	}

	m.cleanup(time.Now().Add(LockoutDuration + time.Second))
	if m.IsLockedOut("10.0.0.9") {
		t.Error("cleanup should lift expired lockouts")
	}
}

func TestHandleTokenMethodAndDisabled(t *testing.T) {
	m := testManager(t, "hunter2", "")
	rec := httptest.NewRecorder()
	m.HandleToken(rec, httptest.NewRequest(http.MethodGet, "/auth/token", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET got %d", rec.Code)
	}

	if rec := postPassword(testManager(t, "", "tok"), "x", "1.2.3.4:1"); rec.Code != http.StatusNotFound {
		t.Errorf("password login without hash got %d", rec.Code)
	}
}

func TestSessionExpiry(t *testing.T) {
	m := testManager(t, "hunter2", "")
	token, err := m.CreateSession()
	if err != nil {
		t.Fatal(err)
	}

	m.mu.Lock()
	m.sessions[token] = time.Now().Add(-time.Second)
	m.mu.Unlock()

	if m.ValidateToken(token) {
		t.Error("expired session accepted")
	}
}

func TestInvalidHash(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := newManager(ctx, "%%%not-base64", "")
	if m.ValidatePassword("anything") {
		t.Error("undecodable hash must never validate")
	}
}
