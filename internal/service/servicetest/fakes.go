package servicetest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Denylist is an in-memory token denylist with expiry. Set Err to make
// every call fail, as an unreachable Redis would after its retry budget.
type Denylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	seen    map[string]time.Time
	Now     func() time.Time
	Err     error

	// FailAddAt makes the n-th call to Add (1-based) fail with Err or a
	// generic error. Zero disables it.
	FailAddAt int
	adds      int
}

var errFailedAdd = errors.New("denylist write failed")

func NewDenylist() *Denylist {
	return &Denylist{entries: map[string]time.Time{}, seen: map[string]time.Time{}, Now: time.Now}
}

func (d *Denylist) Add(_ context.Context, jti string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.adds++
	if d.adds == d.FailAddAt {
		return errFailedAdd
	}
	if ttl <= 0 {
		return nil
	}
	d.entries[jti] = d.Now().Add(ttl)
	return nil
}

func (d *Denylist) Contains(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return false, d.Err
	}
	exp, ok := d.entries[jti]
	return ok && d.Now().Before(exp), nil
}

// TTL returns the remaining lifetime of jti, or 0 when absent.
func (d *Denylist) TTL(jti string) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.entries[jti]
	if !ok {
		return 0
	}
	return exp.Sub(d.Now())
}

func (d *Denylist) MarkCodeSeen(_ context.Context, code string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return false, d.Err
	}
	if exp, ok := d.seen[code]; ok && d.Now().Before(exp) {
		return false, nil
	}
	d.seen[code] = d.Now().Add(ttl)
	return true, nil
}

// Hasher is a fast reversible stand-in for bcrypt.
type Hasher struct{}

func (Hasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (Hasher) Verify(hash, plain string) bool {
	return strings.HasPrefix(hash, "hashed:") && hash == "hashed:"+plain
}

// Published is one recorded event.
type Published struct {
	RoutingKey string
	Payload    any
}

// Publisher records events. Set Err to make publishing fail.
type Publisher struct {
	mu     sync.Mutex
	events []Published
	Err    error
}

func (p *Publisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, Published{RoutingKey: key, Payload: payload})
	return nil
}

// Events returns the recorded events with the given routing key.
func (p *Publisher) Events(key string) []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Published
	for _, e := range p.events {
		if e.RoutingKey == key {
			out = append(out, e)
		}
	}
	return out
}
