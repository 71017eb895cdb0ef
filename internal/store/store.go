// Package store persists named projection configurations per owner.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/saas-forecast/internal/config"
)

// ErrNotFound is returned when no configuration exists for an owner and name.
var ErrNotFound = errors.New("configuration not found")

// ErrInvalidKey is returned for an empty owner or name.
var ErrInvalidKey = errors.New("owner and name are required")

// Record is a stored configuration.
type Record struct {
	ID        string               `json:"id"`
	Owner     string               `json:"owner"`
	Name      string               `json:"name"`
	Config    config.Configuration `json:"config"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// ConfigStore saves and retrieves configurations keyed by owner and name.
// Saving an existing key replaces its configuration and keeps its ID.
type ConfigStore interface {
	Save(ctx context.Context, owner, name string, conf config.Configuration) (Record, error)
	Get(ctx context.Context, owner, name string) (Record, error)
	List(ctx context.Context, owner string) ([]Record, error)
	Delete(ctx context.Context, owner, name string) error
}

func checkKey(owner, name string) error {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(name) == "" {
		return ErrInvalidKey
	}
	return nil
}

func newID() string {
	return uuid.New().String()
}

func notFound(owner, name string) error {
	return fmt.Errorf("%w: %s/%s", ErrNotFound, owner, name)
}
