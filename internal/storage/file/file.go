// Package file stores ledger accounts in a single yaml document.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lugondev/flashswap/internal/config"
	"github.com/lugondev/flashswap/internal/storage"
)

const documentVersion = 1

func init() {
	storage.RegisterFactory("file", func(_ context.Context, cfg *config.StorageConfig) (storage.Repository, error) {
		repo, err := NewFileRepository(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create file repository: %w", err)
		}
		return repo, nil
	})
}

// document is the on-disk layout.
type document struct {
	Version  int                     `yaml:"version"`
	Accounts []*storage.AccountModel `yaml:"accounts"`
}

type FileRepository struct {
	path string

	mu       sync.Mutex
	accounts map[string]*storage.AccountModel

	accountRepo storage.AccountRepository
}

// NewFileRepository opens the document at path. A missing file is an empty
// repository; it is created on the first write.
func NewFileRepository(path string) (*FileRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is empty")
	}
	repo := &FileRepository{
		path:     path,
		accounts: make(map[string]*storage.AccountModel),
	}
	repo.accountRepo = &fileAccountRepository{repo: repo}

	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileRepository) load() error {
	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", r.path, err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", r.path, err)
	}
	if doc.Version != 0 && doc.Version != documentVersion {
		return fmt.Errorf("%s: unsupported document version %d", r.path, doc.Version)
	}
	for _, m := range doc.Accounts {
		r.accounts[m.Pubkey] = m
	}
	return nil
}

// flush rewrites the document through a temporary file. Callers hold r.mu.
func (r *FileRepository) flush() error {
	doc := document{Version: documentVersion, Accounts: r.sorted(nil)}
	raw, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), r.path)
}

// sorted returns the accounts accepted by keep in pubkey order.
func (r *FileRepository) sorted(keep func(*storage.AccountModel) bool) []*storage.AccountModel {
	out := make([]*storage.AccountModel, 0, len(r.accounts))
	for _, m := range r.accounts {
		if keep == nil || keep(m) {
			copied := *m
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pubkey < out[j].Pubkey })
	return out
}

func (r *FileRepository) Path() string {
	return r.path
}

func (r *FileRepository) Accounts() storage.AccountRepository {
	return r.accountRepo
}

func (r *FileRepository) Close() error {
	return nil
}

// Ping checks that the directory holding the document is usable.
func (r *FileRepository) Ping(_ context.Context) error {
	info, err := os.Stat(filepath.Dir(r.path))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Dir(r.path))
	}
	return nil
}
