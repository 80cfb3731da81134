// Package identity persists the customer identity and the admin session
// between runs.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/slotsync/go/internal/errs"
	"github.com/mcdev12/slotsync/go/internal/models"
)

const (
	UserKey  = "slotSync_user"
	AdminKey = "slotSync_admin"
)

// Backend is a small key/value store for serialized records. Get returns
// errs.ErrNotFound for keys that were never written.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store reads and writes typed identity records on a Backend.
type Store struct {
	backend Backend
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// LoadIdentity returns the stored customer identity. A missing record is
// reported as an empty identity and errs.ErrNotFound.
func (s *Store) LoadIdentity(ctx context.Context) (models.ClientIdentity, error) {
	var id models.ClientIdentity
	if err := s.load(ctx, UserKey, &id); err != nil {
		return models.ClientIdentity{}, err
	}
	return id, nil
}

func (s *Store) SaveIdentity(ctx context.Context, id models.ClientIdentity) error {
	return s.save(ctx, UserKey, id)
}

func (s *Store) ClearIdentity(ctx context.Context) error {
	return s.backend.Delete(ctx, UserKey)
}

// LoadSession returns the stored admin session, valid or not.
func (s *Store) LoadSession(ctx context.Context) (models.AdminSession, error) {
	var sess models.AdminSession
	if err := s.load(ctx, AdminKey, &sess); err != nil {
		return models.AdminSession{}, err
	}
	return sess, nil
}

func (s *Store) SaveSession(ctx context.Context, sess models.AdminSession) error {
	return s.save(ctx, AdminKey, sess)
}

func (s *Store) ClearSession(ctx context.Context) error {
	return s.backend.Delete(ctx, AdminKey)
}

func (s *Store) load(ctx context.Context, key string, out any) error {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.backend.Put(ctx, key, raw)
}

// IsNotFound reports whether err means the record was never written.
func IsNotFound(err error) bool {
	return errors.Is(err, errs.ErrNotFound)
}
