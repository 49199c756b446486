package fhe

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// CipherRecord is the durable form of one ciphertext: the handle it is known
// by, the serialized ciphertext, the number of fresh encryptions folded into
// it, and the principals allowed to decrypt it.
type CipherRecord struct {
	Handle Handle
	Data   []byte
	Depth  int64
	ACL    []string
}

// CipherStore persists ciphertexts for an engine. The db package provides the
// mongo-backed implementation; MemStore backs tests and offline tooling.
type CipherStore interface {
	// SaveCipher upserts rec keyed by its handle.
	SaveCipher(ctx context.Context, rec *CipherRecord) error
	// GetCipher returns the record for h or ErrUnknownHandle.
	GetCipher(ctx context.Context, h Handle) (*CipherRecord, error)
	// GrantDecrypt appends principal to the ACL of h. Idempotent.
	GrantDecrypt(ctx context.Context, h Handle, principal string) error
}

type MemStore struct {
	mu   sync.RWMutex
	recs map[Handle]*CipherRecord
}

func NewMemStore() *MemStore {
	return &MemStore{
		recs: make(map[Handle]*CipherRecord),
	}
}

func (s *MemStore) SaveCipher(_ context.Context, rec *CipherRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recs[rec.Handle] = &CipherRecord{
		Handle: rec.Handle,
		Data:   slices.Clone(rec.Data),
		Depth:  rec.Depth,
		ACL:    slices.Clone(rec.ACL),
	}

	return nil
}

func (s *MemStore) GetCipher(_ context.Context, h Handle) (*CipherRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.recs[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}

	return &CipherRecord{
		Handle: rec.Handle,
		Data:   slices.Clone(rec.Data),
		Depth:  rec.Depth,
		ACL:    slices.Clone(rec.ACL),
	}, nil
}

func (s *MemStore) GrantDecrypt(_ context.Context, h Handle, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[h]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	if !slices.Contains(rec.ACL, principal) {
		rec.ACL = append(rec.ACL, principal)
	}

	return nil
}
