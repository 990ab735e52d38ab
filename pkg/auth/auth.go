package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// TokenManager manages short-lived client tokens
type TokenManager struct {
	tokens map[string]*TokenInfo
	mu     sync.RWMutex
}

// TokenInfo contains token metadata
type TokenInfo struct {
	Hash      string
	ClientID  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewTokenManager creates a new token manager
func NewTokenManager() *TokenManager {
	return &TokenManager{
		tokens: make(map[string]*TokenInfo),
	}
}

// GenerateToken generates a new authentication token for a client
func (tm *TokenManager) GenerateToken(clientID string, duration time.Duration) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := base64.URLEncoding.EncodeToString(tokenBytes)

	// Only the hash is stored
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.tokens[clientID] = &TokenInfo{
		Hash:      string(hash),
		ClientID:  clientID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(duration),
	}

	return token, nil
}

// ValidateToken validates an authentication token
func (tm *TokenManager) ValidateToken(clientID, token string) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	info, ok := tm.tokens[clientID]
	if !ok {
		return ErrInvalidToken
	}
	if time.Now().After(info.ExpiresAt) {
		return ErrTokenExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(info.Hash), []byte(token)); err != nil {
		return ErrInvalidToken
	}
	return nil
}

// RevokeToken revokes a client's token
func (tm *TokenManager) RevokeToken(clientID string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	delete(tm.tokens, clientID)
}

// CleanupExpiredTokens removes expired tokens
func (tm *TokenManager) CleanupExpiredTokens() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := time.Now()
	for clientID, info := range tm.tokens {
		if now.After(info.ExpiresAt) {
			delete(tm.tokens, clientID)
		}
	}
}

// SecureCompare performs constant-time comparison
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// APIKeyMiddleware checks the Authorization header against a static API
// key or, when a token manager is supplied, against an issued client
// token of the form "<client-id>:<token>". The health endpoint stays
// open so probes keep working.
func APIKeyMiddleware(apiKey string, tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
				return
			}

			if SecureCompare(authHeader, "Bearer "+apiKey) {
				next.ServeHTTP(w, r)
				return
			}

			if tm != nil {
				bearer := strings.TrimPrefix(authHeader, "Bearer ")
				if clientID, token, ok := strings.Cut(bearer, ":"); ok {
					if tm.ValidateToken(clientID, token) == nil {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			http.Error(w, "Invalid API key", http.StatusUnauthorized)
		})
	}
}
