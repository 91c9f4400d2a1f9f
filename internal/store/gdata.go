package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/quasilyte/gdata/v2"
)

const wishesObject = "wishes"

// GdataStore keeps each name's wishes as one JSON property in the user's
// application data directory. Suited to single-player terminal use.
type GdataStore struct {
	mu      sync.Mutex
	manager *gdata.Manager
}

// NewGdataStore opens the application data directory for appName
func NewGdataStore(appName string) (*GdataStore, error) {
	manager, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("gdata store: failed to open %q: %w", appName, err)
	}
	return &GdataStore{manager: manager}, nil
}

// Property names are hex so any name is filesystem safe.
func propKey(name string) string {
	return "n" + hex.EncodeToString([]byte(name))
}

func (s *GdataStore) load(name string) ([]string, error) {
	key := propKey(name)
	if !s.manager.ObjectPropExists(wishesObject, key) {
		return []string{}, nil
	}
	data, err := s.manager.LoadObjectProp(wishesObject, key)
	if err != nil {
		return nil, fmt.Errorf("gdata store: load failed: %w", err)
	}
	wishes := []string{}
	if err := json.Unmarshal(data, &wishes); err != nil {
		return nil, fmt.Errorf("gdata store: corrupt record for %q: %w", name, err)
	}
	return wishes, nil
}

// Save appends one record
func (s *GdataStore) Save(ctx context.Context, name, wish string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wishes, err := s.load(name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(append(wishes, wish))
	if err != nil {
		return fmt.Errorf("gdata store: %w", err)
	}
	if err := s.manager.SaveObjectProp(wishesObject, propKey(name), data); err != nil {
		return fmt.Errorf("gdata store: save failed: %w", err)
	}
	return nil
}

// List returns the wishes for name ordered by insertion
func (s *GdataStore) List(ctx context.Context, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(name)
}

// Close is a no-op; gdata writes through on every save
func (s *GdataStore) Close() error {
	return nil
}
