package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// TokenPool rotates over API tokens and skips the ones waiting for a rate limit reset.
type TokenPool struct {
	mu     sync.Mutex
	creds  []contract.Credential
	resets map[string]time.Time
	next   int
	now    func() time.Time
}

var _ contract.CredentialPool = &TokenPool{} // Compile-time check

// NewTokenPool returns a pool over tokens. With no tokens the pool holds one anonymous
// credential, which GitHub allows at a much lower rate.
func NewTokenPool(tokens []string) *TokenPool {
	p := &TokenPool{resets: map[string]time.Time{}, now: time.Now}
	for i, tok := range tokens {
		p.creds = append(p.creds, contract.Credential{Name: fmt.Sprintf("token-%d", i+1), Token: tok})
	}
	if len(p.creds) == 0 {
		p.creds = []contract.Credential{{Name: "anonymous"}}
	}
	return p
}

// Acquire returns the next credential whose rate limit has reset.
func (p *TokenPool) Acquire(ctx context.Context) (contract.Credential, error) {
	if err := ctx.Err(); err != nil {
		return contract.Credential{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.creds {
		cred := p.creds[p.next]
		p.next = (p.next + 1) % len(p.creds)
		if reset, ok := p.resets[cred.Name]; ok {
			if now.Before(reset) {
				continue
			}
			delete(p.resets, cred.Name)
		}
		return cred, nil
	}
	return contract.Credential{}, fmt.Errorf("%d credentials: %w", len(p.creds), schema.ErrRateLimitExhausted)
}

// MarkExhausted takes cred out of rotation until reset.
func (p *TokenPool) MarkExhausted(cred contract.Credential, reset time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if reset.IsZero() {
		reset = p.now().Add(time.Hour)
	}
	p.resets[cred.Name] = reset
}
