package kv

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
)

// Pool shares one Store per cache directory. Badger holds a directory lock,
// so concurrent runs that point at the same dir must reuse the same handle.
// The TTL of the first Config seen for a dir wins.
type Pool struct {
	logger *slog.Logger

	mu     sync.Mutex
	stores map[string]*Store
	closed bool
}

func NewPool(logger *slog.Logger) *Pool {
	return &Pool{
		logger: logger,
		stores: make(map[string]*Store),
	}
}

var ErrPoolClosed = errors.New("kv pool is closed")

// Get returns the store for cfg, opening it on first use.
func (p *Pool) Get(cfg *Config) (*Store, error) {
	key := ":memory:"
	if !cfg.InMemory {
		key = filepath.Clean(cfg.Dir)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	if s, ok := p.stores[key]; ok {
		return s, nil
	}

	s, err := Open(cfg, p.logger)
	if err != nil {
		return nil, err
	}
	p.stores[key] = s

	return s, nil
}

// Close closes every store opened through the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	var errs []error
	for key, s := range p.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(p.stores, key)
	}

	return errors.Join(errs...)
}
