package auth

import "sync"

// RevocationList tracks tokens invalidated by logout.
//
// The list lives in process memory only: a restart clears it, so revocation
// does not survive restarts, and entries are never evicted, so it grows for
// the life of the process. Both are accepted limitations of the current
// design. All methods are safe for concurrent use.
type RevocationList struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

// NewRevocationList creates an empty revocation list.
func NewRevocationList() *RevocationList {
	return &RevocationList{
		tokens: make(map[string]struct{}),
	}
}

// Revoke marks the raw token string as revoked.
func (l *RevocationList) Revoke(token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens[token] = struct{}{}
}

// IsRevoked reports whether the token has been revoked.
func (l *RevocationList) IsRevoked(token string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.tokens[token]
	return ok
}

// Len returns the number of revoked tokens held.
func (l *RevocationList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tokens)
}
