package tutor

import "math/rand/v2"

// Selector chooses one of n candidates
type Selector interface {
	// Pick returns an index in [0, n). n is always positive.
	Pick(n int) int
}

// RandomSelector picks uniformly at random, with no memory between calls
type RandomSelector struct{}

func (RandomSelector) Pick(n int) int {
	return rand.IntN(n)
}

// Pool is an immutable set of provider credentials
type Pool struct {
	keys     []string
	selector Selector
}

// NewPool copies keys, dropping empty entries. A nil selector means RandomSelector.
func NewPool(keys []string, sel Selector) *Pool {
	if sel == nil {
		sel = RandomSelector{}
	}

	kept := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			kept = append(kept, k)
		}
	}

	return &Pool{keys: kept, selector: sel}
}

// Pick returns one credential, or ErrNoCredentials when the pool is empty
func (p *Pool) Pick() (string, error) {
	if p == nil || len(p.keys) == 0 {
		return "", ErrNoCredentials
	}

	i := p.selector.Pick(len(p.keys))
	if i < 0 || i >= len(p.keys) {
		i = 0
	}
	return p.keys[i], nil
}

// Size returns the number of usable credentials
func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}
