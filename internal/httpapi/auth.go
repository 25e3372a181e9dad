package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"kadaipos/engine/internal/domain"
	"kadaipos/engine/internal/store"
)

var errInvalidCredentials = errors.New("invalid credentials")

type claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthManager issues and verifies the HS256 access tokens the register UI
// holds between logins.
type AuthManager struct {
	repo   store.Repository
	secret []byte
	ttl    time.Duration
}

func NewAuthManager(repo store.Repository, secret string, ttl time.Duration) *AuthManager {
	return &AuthManager{repo: repo, secret: []byte(secret), ttl: ttl}
}

// Login authenticates by username or phone plus PIN. Both failure modes
// return the same error so callers cannot probe which accounts exist.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	var (
		user *domain.User
		err  error
	)
	switch {
	case req.Username != "":
		user, err = a.repo.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	case req.Phone != "":
		user, err = a.repo.GetUserByPhone(ctx, strings.TrimSpace(req.Phone))
	default:
		return nil, errInvalidCredentials
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PINHash), []byte(req.PIN)) != nil {
		return nil, errInvalidCredentials
	}

	expiresAt := time.Now().Add(a.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &domain.LoginResponse{
		AccessToken: signed,
		Username:    user.Username,
		Role:        user.Role,
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Verify parses a bearer token and returns the actor it encodes.
func (a *AuthManager) Verify(tokenString string) (domain.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return domain.Actor{}, err
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return domain.Actor{}, errors.New("invalid token")
	}
	return domain.Actor{UserID: c.Subject, Username: c.Username, Role: c.Role}, nil
}

// attemptLimiter slows PIN guessing. After maxAttempts failures for a key
// within the window, further logins for that key are rejected until the
// window expires.
type attemptLimiter struct {
	mu          sync.Mutex
	failures    map[string][]time.Time
	maxAttempts int
	window      time.Duration
}

func newAttemptLimiter(maxAttempts int, window time.Duration) *attemptLimiter {
	return &attemptLimiter{
		failures:    make(map[string][]time.Time),
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func (l *attemptLimiter) allowed(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(key)) < l.maxAttempts
}

func (l *attemptLimiter) recordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[key] = append(l.prune(key), time.Now())
}

func (l *attemptLimiter) reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
}

// prune must be called with the lock held.
func (l *attemptLimiter) prune(key string) []time.Time {
	cutoff := time.Now().Add(-l.window)
	kept := l.failures[key][:0]
	for _, t := range l.failures[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, key)
		return nil
	}
	l.failures[key] = kept
	return kept
}
