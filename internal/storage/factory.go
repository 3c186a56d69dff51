package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/lugondev/flashswap/internal/config"
)

// Factory opens a repository for a storage configuration.
type Factory func(context.Context, *config.StorageConfig) (Repository, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory makes a driver available to NewRepositoryFromConfig.
// Driver packages call it from init.
func RegisterFactory(driver string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[driver] = factory
}

func NewRepositoryFromConfig(ctx context.Context, cfg *config.StorageConfig) (Repository, error) {
	factoriesMu.RLock()
	factory, ok := factories[cfg.Driver]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage driver %q not registered - import _ \"github.com/lugondev/flashswap/internal/storage/%s\"", cfg.Driver, cfg.Driver)
	}
	return factory(ctx, cfg)
}
