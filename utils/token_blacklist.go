package utils

import (
	"context"
	"sync"
	"time"
)

const revokedKeyPrefix = "session:revoked:"

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.RWMutex
)

// BlacklistToken revokes a session token until its natural expiry (logout).
func BlacklistToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := rc.Set(ctx, revokedKeyPrefix+token, "1", ttl).Err()
		if err == nil {
			return
		}
		Sugar.Warnf("revoke token in redis failed, keeping it in memory: %v", err)
	}
	revokedMu.Lock()
	revoked[token] = expiresAt
	purgeRevokedLocked(time.Now())
	revokedMu.Unlock()
}

// IsTokenBlacklisted reports whether a token was revoked before it expired.
func IsTokenBlacklisted(token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, revokedKeyPrefix+token).Result()
		if err == nil && n > 0 {
			return true
		}
	}
	revokedMu.RLock()
	expiresAt, ok := revoked[token]
	revokedMu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		revokedMu.Lock()
		delete(revoked, token)
		revokedMu.Unlock()
		return false
	}
	return true
}

func purgeRevokedLocked(now time.Time) {
	for tok, exp := range revoked {
		if now.After(exp) {
			delete(revoked, tok)
		}
	}
}
