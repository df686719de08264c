// Package useragent rotates browser User-Agent strings across article
// fetches so a burst of requests does not present a single client
// signature to news sites.
package useragent

import (
	"math/rand"
	"sync/atomic"
)

// defaults covers current desktop Chrome, Firefox and Safari builds.
var defaults = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:123.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.0.0",
}

// Pool hands out User-Agent strings round-robin. Safe for concurrent use.
type Pool struct {
	agents []string
	cursor atomic.Uint64
}

// NewPool builds a pool from the given strings, falling back to the
// built-in defaults when empty.
func NewPool(agents []string) *Pool {
	if len(agents) == 0 {
		agents = defaults
	}
	copied := make([]string, len(agents))
	copy(copied, agents)
	return &Pool{agents: copied}
}

// Next returns the next User-Agent in rotation.
func (p *Pool) Next() string {
	i := p.cursor.Add(1) - 1
	return p.agents[i%uint64(len(p.agents))]
}

// Random returns an arbitrary User-Agent from the pool.
func (p *Pool) Random() string {
	return p.agents[rand.Intn(len(p.agents))]
}

// Len reports how many User-Agents the pool rotates over.
func (p *Pool) Len() int {
	return len(p.agents)
}
