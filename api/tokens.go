package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// proofTokens keeps the one-time tokens that authorize the proof endpoint.
// A token is issued on every successful registration and replaces any
// previous token of the same identity.
type proofTokens struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newProofTokens() *proofTokens {
	return &proofTokens{tokens: make(map[string]string)}
}

// issue creates and stores a new token for identity.
func (pt *proofTokens) issue(identity string) string {
	token := uuid.NewString()
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.tokens[identity] = token
	return token
}

// take consumes the token of identity if it matches the given one.
func (pt *proofTokens) take(identity, token string) bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	stored, ok := pt.tokens[identity]
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return false
	}
	delete(pt.tokens, identity)
	return true
}

// giveBack stores a taken token again, unless a newer one was issued
// meanwhile.
func (pt *proofTokens) giveBack(identity, token string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if _, ok := pt.tokens[identity]; !ok {
		pt.tokens[identity] = token
	}
}

// bearerToken returns the token of the Authorization header, if any.
func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
