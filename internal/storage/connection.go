package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lugondev/flashswap/internal/common"
	"github.com/lugondev/flashswap/internal/config"
)

// ConnectionManager opens the configured driver once and hands out its
// repository.
type ConnectionManager struct {
	common.LoggerMixin

	config     *config.StorageConfig
	repository Repository
}

func NewConnectionManager(cfg *config.StorageConfig, logger logrus.FieldLogger) (*ConnectionManager, error) {
	if cfg == nil || cfg.Driver == "" {
		return nil, fmt.Errorf("storage is not configured")
	}
	cm := &ConnectionManager{LoggerMixin: common.NewLoggerMixin(), config: cfg}
	cm.SetLogger(logger)
	return cm, nil
}

// Connect opens and pings the repository. Later calls reuse it.
func (cm *ConnectionManager) Connect(ctx context.Context) (Repository, error) {
	if cm.repository != nil {
		return cm.repository, nil
	}

	repo, err := NewRepositoryFromConfig(ctx, cm.config)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cm.config.Driver, err)
	}
	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to ping %s storage: %w", cm.config.Driver, err)
	}

	cm.GetLogger().WithField("driver", cm.config.Driver).Debug("storage connected")
	cm.repository = repo
	return repo, nil
}

func (cm *ConnectionManager) GetRepository() (Repository, error) {
	if cm.repository == nil {
		return nil, fmt.Errorf("storage connection not established")
	}
	return cm.repository, nil
}

// Accounts is GetRepository().Accounts() for callers that already connected.
func (cm *ConnectionManager) Accounts() (AccountRepository, error) {
	repo, err := cm.GetRepository()
	if err != nil {
		return nil, err
	}
	return repo.Accounts(), nil
}

func (cm *ConnectionManager) Close() error {
	if cm.repository == nil {
		return nil
	}
	err := cm.repository.Close()
	cm.repository = nil
	return err
}
