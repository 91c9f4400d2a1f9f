// Package store persists wish records. Names are matched exactly and
// case-sensitively, and the same wish may be stored more than once.
package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/livetemplate/newyear/internal/config"
)

// WishStore is a backend for (name, wish) records
type WishStore interface {
	// Save appends one record.
	Save(ctx context.Context, name, wish string) error
	// List returns every wish stored for name in insertion order, never nil.
	List(ctx context.Context, name string) ([]string, error)
	Close() error
}

// Open creates the store selected by cfg, wrapped in a read cache when
// store.cache_ttl is set. Relative sqlite paths resolve against dir.
func Open(cfg config.StoreConfig, dir string) (WishStore, error) {
	s, err := open(cfg, dir)
	if err != nil {
		return nil, err
	}
	if cfg.IsCacheEnabled() {
		return NewCachedStore(s, cfg.GetCacheTTL()), nil
	}
	return s, nil
}

func open(cfg config.StoreConfig, dir string) (WishStore, error) {
	switch cfg.GetType() {
	case "sqlite":
		path := cfg.DB
		if path == "" {
			path = "newyear.db"
		}
		if !filepath.IsAbs(path) && path != ":memory:" {
			path = filepath.Join(dir, path)
		}
		return NewSQLiteStore(path, cfg.GetTable())
	case "pg":
		return NewPostgresStore(cfg.GetDSN(), cfg.GetTable())
	case "gdata":
		return NewGdataStore(cfg.GetAppName())
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("store: unsupported type %q", cfg.Type)
	}
}

// isValidIdentifier guards table names interpolated into SQL
func isValidIdentifier(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for i, c := range name {
		letter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		if i == 0 && !letter {
			return false
		}
		if !letter && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
