// Package seeders fills a migrated database with demo data: staff and guest
// accounts, the menu, customers and a spread of orders. Every seeder is
// safe to run again.
//
//	cafe seed
package seeders

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/pkg/logger"
)

// SeederFunc inserts one slice of demo data.
type SeederFunc func(db *gorm.DB) error

type seeder struct {
	name string
	fn   SeederFunc
}

var (
	mu       sync.Mutex
	registry []seeder
)

// Register appends a seeder; they run in registration order.
func Register(name string, fn SeederFunc) {
	mu.Lock()
	defer mu.Unlock()
	registry = append(registry, seeder{name: name, fn: fn})
}

// Names lists the registered seeders in run order.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, len(registry))
	for i, s := range registry {
		out[i] = s.name
	}
	return out
}

// RunAll runs every seeder and stops at the first failure. It returns how
// many completed.
func RunAll(db *gorm.DB) (int, error) {
	mu.Lock()
	pending := make([]seeder, len(registry))
	copy(pending, registry)
	mu.Unlock()

	for i, s := range pending {
		start := time.Now()
		if err := s.fn(db); err != nil {
			logger.Error("seed: failed", "seeder", s.name, "error", err)
			return i, fmt.Errorf("seeders: %s: %w", s.name, err)
		}
		logger.Info("seed: done", "seeder", s.name, "took", time.Since(start).Round(time.Millisecond))
	}
	return len(pending), nil
}
