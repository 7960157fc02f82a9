// Package ratelimit provides rate limiting for login and password-reset
// operations.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

// realClock implements Clock using the system time.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds rate limit configuration.
type Config struct {
	// Password-reset request limits
	ResetCooldown     time.Duration // Minimum time between reset emails (default: 60s)
	ResetMaxPerHour   int           // Max reset requests per identifier per hour (default: 5)
	ResetMaxIPPerHour int           // Max reset requests per IP per hour (default: 20)

	// Login limits
	LoginMaxAttempts  int           // Max failed logins before lockout (default: 5)
	LoginLockout      time.Duration // Lockout duration after max attempts (default: 5m)
	LoginMaxIPPerHour int           // Max login attempts per IP per hour (default: 30)

	// Clock for testing (nil uses real time)
	Clock Clock
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		ResetCooldown:     60 * time.Second,
		ResetMaxPerHour:   5,
		ResetMaxIPPerHour: 20,
		LoginMaxAttempts:  5,
		LoginLockout:      5 * time.Minute,
		LoginMaxIPPerHour: 30,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

// entry tracks request counts and timestamps.
type entry struct {
	count    int
	firstAt  time.Time // First request in window
	lastAt   time.Time // Most recent request (for cooldown)
	lockedAt time.Time // When lockout started (zero if not locked)
}

// Limiter implements multi-layer rate limiting for auth operations.
type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.RWMutex
	// Keyed by hash of identifier or IP
	resetByID map[string]*entry
	resetByIP map[string]*entry
	loginByID map[string]*entry
	loginByIP map[string]*entry

	// Cleanup goroutine management
	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

// New creates a new rate limiter with the given config.
func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		resetByID:     make(map[string]*entry),
		resetByIP:     make(map[string]*entry),
		loginByID:     make(map[string]*entry),
		loginByIP:     make(map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine and releases resources.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// CheckResetRequest checks if a password-reset request is allowed.
// Does NOT record the attempt - call RecordResetRequest after the email
// is accepted for delivery.
func (l *Limiter) CheckResetRequest(identifier, ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()
	idKey := l.hashKey("reset:id:", normalizeIdentifier(identifier))
	ipKey := l.hashKey("reset:ip:", ip)

	l.mu.RLock()
	defer l.mu.RUnlock()

	// Check per-identifier cooldown
	if e := l.resetByID[idKey]; e != nil {
		elapsed := now.Sub(e.lastAt)
		if elapsed < l.config.ResetCooldown {
			return LimitResult{
				Allowed:    false,
				RetryAfter: l.config.ResetCooldown - elapsed,
				Reason:     "cooldown",
			}
		}

		// Check hourly limit
		if now.Sub(e.firstAt) < time.Hour && e.count >= l.config.ResetMaxPerHour {
			return LimitResult{
				Allowed:    false,
				RetryAfter: time.Hour - now.Sub(e.firstAt),
				Reason:     "hourly_limit",
			}
		}
	}

	// Check per-IP hourly limit
	if e := l.resetByIP[ipKey]; e != nil {
		if now.Sub(e.firstAt) < time.Hour && e.count >= l.config.ResetMaxIPPerHour {
			return LimitResult{
				Allowed:    false,
				RetryAfter: time.Hour - now.Sub(e.firstAt),
				Reason:     "ip_hourly_limit",
			}
		}
	}

	return LimitResult{Allowed: true}
}

// RecordResetRequest records a password-reset request.
func (l *Limiter) RecordResetRequest(identifier, ip string) {
	now := l.clock.Now()
	idKey := l.hashKey("reset:id:", normalizeIdentifier(identifier))
	ipKey := l.hashKey("reset:ip:", ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.resetByID[idKey]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		l.resetByID[idKey] = &entry{count: 1, firstAt: now, lastAt: now}
	} else {
		e.count++
		e.lastAt = now
	}

	e = l.resetByIP[ipKey]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		l.resetByIP[ipKey] = &entry{count: 1, firstAt: now, lastAt: now}
	} else {
		e.count++
		e.lastAt = now
	}
}

// CheckLogin checks if a login attempt is allowed.
// Does NOT record the attempt - call RecordFailedLogin after checking the
// password.
func (l *Limiter) CheckLogin(identifier, ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()
	idKey := l.hashKey("login:id:", normalizeIdentifier(identifier))
	ipKey := l.hashKey("login:ip:", ip)

	l.mu.RLock()
	defer l.mu.RUnlock()

	// Check if identifier is locked out
	if e := l.loginByID[idKey]; e != nil {
		if !e.lockedAt.IsZero() {
			elapsed := now.Sub(e.lockedAt)
			if elapsed < l.config.LoginLockout {
				return LimitResult{
					Allowed:    false,
					RetryAfter: l.config.LoginLockout - elapsed,
					Reason:     "lockout",
				}
			}
			// Lockout expired - will be cleaned up, allow this request
		} else if e.count >= l.config.LoginMaxAttempts {
			return LimitResult{
				Allowed:    false,
				RetryAfter: l.config.LoginLockout,
				Reason:     "max_attempts",
			}
		}
	}

	// Check per-IP hourly limit
	if e := l.loginByIP[ipKey]; e != nil {
		if now.Sub(e.firstAt) < time.Hour && e.count >= l.config.LoginMaxIPPerHour {
			return LimitResult{
				Allowed:    false,
				RetryAfter: time.Hour - now.Sub(e.firstAt),
				Reason:     "ip_hourly_limit",
			}
		}
	}

	return LimitResult{Allowed: true}
}

// RecordFailedLogin records a failed login attempt.
// Returns true if max attempts reached and lockout was triggered.
func (l *Limiter) RecordFailedLogin(identifier, ip string) (lockedOut bool) {
	now := l.clock.Now()
	idKey := l.hashKey("login:id:", normalizeIdentifier(identifier))
	ipKey := l.hashKey("login:ip:", ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	// Update identifier entry
	e := l.loginByID[idKey]
	if e == nil {
		l.loginByID[idKey] = &entry{count: 1, firstAt: now, lastAt: now}
	} else if !e.lockedAt.IsZero() && now.Sub(e.lockedAt) >= l.config.LoginLockout {
		// Lockout expired, reset
		l.loginByID[idKey] = &entry{count: 1, firstAt: now, lastAt: now}
	} else {
		e.count++
		e.lastAt = now
		if e.count >= l.config.LoginMaxAttempts && e.lockedAt.IsZero() {
			e.lockedAt = now
			lockedOut = true
		}
	}

	// Update IP entry
	e = l.loginByIP[ipKey]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		l.loginByIP[ipKey] = &entry{count: 1, firstAt: now, lastAt: now}
	} else {
		e.count++
		e.lastAt = now
	}

	return lockedOut
}

// ResetLoginAttempts clears the failure counter after a successful login.
func (l *Limiter) ResetLoginAttempts(identifier string) {
	idKey := l.hashKey("login:id:", normalizeIdentifier(identifier))
	l.mu.Lock()
	delete(l.loginByID, idKey)
	l.mu.Unlock()
}

func (l *Limiter) hashKey(prefix, value string) string {
	hash := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(hash[:8])
}

// normalizeIdentifier lowercases the identifier to prevent case-based bypass.
func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	// Clean reset entries older than 1 hour
	for k, e := range l.resetByID {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.resetByID, k)
		}
	}
	for k, e := range l.resetByIP {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.resetByIP, k)
		}
	}

	// Clean login entries older than lockout + 1 hour
	maxAge := l.config.LoginLockout + time.Hour
	for k, e := range l.loginByID {
		if now.Sub(e.lastAt) > maxAge {
			delete(l.loginByID, k)
		}
	}
	for k, e := range l.loginByIP {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.loginByIP, k)
		}
	}
}

// GetClientIP extracts the client IP from a request.
// When trustProxy is true, uses the rightmost IP from X-Forwarded-For (added by your proxy).
// When trustProxy is false, ignores X-Forwarded-For entirely (prevents spoofing).
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// Use RIGHTMOST IP - this is the one your proxy added, not user-supplied
			parts := strings.Split(xff, ",")
			for i := len(parts) - 1; i >= 0; i-- {
				ip := strings.TrimSpace(parts[i])
				// Skip private/internal IPs to find the real client
				if ip != "" && !isPrivateIP(ip) {
					return ip
				}
			}
			// All IPs are private, use the last one
			return strings.TrimSpace(parts[len(parts)-1])
		}

		// Check X-Real-IP (set by nginx)
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	// Fall back to RemoteAddr (direct connection or untrusted proxy)
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port (e.g., Unix socket or malformed)
		if parsed := net.ParseIP(r.RemoteAddr); parsed != nil {
			return r.RemoteAddr
		}
		if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
			candidate := r.RemoteAddr[:idx]
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
		return r.RemoteAddr
	}
	return ip
}

// privateNetworks holds parsed CIDR ranges for private/reserved IPs.
// Parsed once at package init for efficiency.
var privateNetworks []*net.IPNet

func init() {
	privateRanges := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10", // Link-local
	}
	for _, cidr := range privateRanges {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid private CIDR: " + cidr)
		}
		privateNetworks = append(privateNetworks, network)
	}
}

// isPrivateIP checks if an IP is in a private/reserved range.
// Handles both IPv4 and IPv4-mapped IPv6 addresses (e.g., ::ffff:192.168.1.1).
func isPrivateIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}

	if ipv4 := ip.To4(); ipv4 != nil {
		ip = ipv4
	}

	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// SanitizeIdentifier masks an identifier for logging.
func SanitizeIdentifier(identifier string) string {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if strings.Contains(identifier, "@") {
		parts := strings.Split(identifier, "@")
		if len(parts[0]) > 2 {
			return parts[0][:2] + "***@" + parts[1]
		}
		return "***@" + parts[1]
	}
	if len(identifier) >= 4 {
		return "***" + identifier[len(identifier)-4:]
	}
	return "***"
}

// LogRateLimitExceeded logs a rate limit event with sanitized identifier.
func LogRateLimitExceeded(limitType, identifier, ip, reason string) {
	log.Warn().
		Str("event", "rate_limit_exceeded").
		Str("type", limitType).
		Str("identifier", SanitizeIdentifier(identifier)).
		Str("ip", ip).
		Str("reason", reason).
		Msg("Auth rate limit exceeded")
}
