// Package auth provides password validation, session tokens and brute-force
// protection for the bridge's HTTP and WebSocket surfaces.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/adcondev/print-bridge/internal/config"
)

const (
	SessionDuration  = 15 * time.Minute
	MaxLoginAttempts = 5
	LockoutDuration  = 5 * time.Minute
	CleanupInterval  = 5 * time.Minute
)

type failInfo struct {
	count       int
	lockedUntil time.Time
}

// Manager handles session lifecycle, password validation, and login throttling.
type Manager struct {
	passwordHashB64 string
	staticToken     string
	sessions        map[string]time.Time
	failedLogins    map[string]failInfo
	mu              sync.RWMutex
}

// NewManager creates an auth manager from the build-time credentials, with a
// cleanup goroutine bound to ctx.
func NewManager(ctx context.Context) *Manager {
	return newManager(ctx, config.PasswordHashB64, config.AuthToken)
}

func newManager(ctx context.Context, passwordHashB64, staticToken string) *Manager {
	m := &Manager{
		passwordHashB64: passwordHashB64,
		staticToken:     staticToken,
		sessions:        make(map[string]time.Time),
		failedLogins:    make(map[string]failInfo),
	}
	go m.cleanupLoop(ctx)
	log.Printf("[AUTH] Auth manager initialized (password=%v, token=%v)", m.PasswordEnabled(), staticToken != "")
	return m
}

// PasswordEnabled returns true if a password hash was injected at build time.
func (m *Manager) PasswordEnabled() bool {
	return m.passwordHashB64 != ""
}

// Enabled reports whether callers must present a token.
func (m *Manager) Enabled() bool {
	return m.PasswordEnabled() || m.staticToken != ""
}

// ValidatePassword decodes the base64 hash and compares with bcrypt.
func (m *Manager) ValidatePassword(password string) bool {
	if !m.PasswordEnabled() {
		return false
	}
	hashBytes, err := base64.StdEncoding.DecodeString(m.passwordHashB64)
	if err != nil {
		log.Printf("[AUTH] ❌ Failed to decode password hash from base64: %v", err)
		return false
	}
	return bcrypt.CompareHashAndPassword(hashBytes, []byte(password)) == nil
}

// CreateSession generates a cryptographically random session token.
func (m *Manager) CreateSession() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	m.mu.Lock()
	m.sessions[token] = time.Now().Add(SessionDuration)
	m.mu.Unlock()
	return token, nil
}

// ValidateToken accepts the static build token or a live session token.
func (m *Manager) ValidateToken(token string) bool {
	if token == "" {
		return false
	}
	if m.staticToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(m.staticToken)) == 1 {
		return true
	}
	return m.validateSession(token)
}

func (m *Manager) validateSession(token string) bool {
	m.mu.RLock()
	expiry, exists := m.sessions[token]
	m.mu.RUnlock()
	if !exists {
		return false
	}
	if time.Now().After(expiry) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return false
	}
	return true
}

// IsLockedOut returns true if the IP has exceeded MaxLoginAttempts.
func (m *Manager) IsLockedOut(ip string) bool {
	m.mu.RLock()
	info, exists := m.failedLogins[ip]
	m.mu.RUnlock()
	if !exists {
		return false
	}
	return info.count >= MaxLoginAttempts && time.Now().Before(info.lockedUntil)
}

// RecordFailedLogin increments the failure counter for an IP.
func (m *Manager) RecordFailedLogin(ip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := m.failedLogins[ip]
	info.count++
	if info.count >= MaxLoginAttempts {
		info.lockedUntil = time.Now().Add(LockoutDuration)
		log.Printf("[AUDIT] IP %s locked out for %v after %d failed attempts", ip, LockoutDuration, info.count)
	}
	m.failedLogins[ip] = info
}

// ClearFailedLogins resets the counter on successful login.
func (m *Manager) ClearFailedLogins(ip string) {
	m.mu.Lock()
	delete(m.failedLogins, ip)
	m.mu.Unlock()
}

// TokenResponse is returned by HandleToken.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// HandleToken exchanges a password (form field "password") for a session
// token. POST only.
func (m *Manager) HandleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !m.PasswordEnabled() {
		http.Error(w, "Password login disabled", http.StatusNotFound)
		return
	}

	ip := remoteIP(r)
	if m.IsLockedOut(ip) {
		log.Printf("[AUDIT] LOGIN_BLOCKED | IP=%s | reason=lockout", ip)
		http.Error(w, "Too many attempts", http.StatusTooManyRequests)
		return
	}
	if !m.ValidatePassword(r.FormValue("password")) {
		m.RecordFailedLogin(ip)
		log.Printf("[AUDIT] LOGIN_FAILED | IP=%s", ip)
		http.Error(w, "Invalid password", http.StatusUnauthorized)
		return
	}

	token, err := m.CreateSession()
	if err != nil {
		log.Printf("[AUTH] ❌ crypto/rand failed: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	m.ClearFailedLogins(ip)
	log.Printf("[AUDIT] LOGIN_SUCCESS | IP=%s", ip)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(TokenResponse{Token: token, ExpiresIn: int(SessionDuration.Seconds())})
}

// RequireToken wraps a handler with bearer token validation.
// If auth is disabled, all requests pass through.
func (m *Manager) RequireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !m.ValidateToken(token) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="print-bridge"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (m *Manager) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("[AUTH] Cleanup goroutine stopped")
			return
		case <-ticker.C:
			m.cleanup(time.Now())
		}
	}
}

func (m *Manager) cleanup(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.sessions {
		if now.After(v) {
			delete(m.sessions, k)
		}
	}
	for k, v := range m.failedLogins {
		if v.count >= MaxLoginAttempts && now.After(v.lockedUntil) {
			delete(m.failedLogins, k)
		}
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
