package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stellar-anchor-service/anchor/internal/data"
)

// MemoryTransferStore is the default in-memory TransferStore. It keeps a
// primary map plus secondary indices for the interactive token, on-chain id,
// and external id lookups (I1-I3), and serializes mutations to a single
// transfer id through a striped lock so CompleteInteractive never races a
// concurrent Update on the same record.
type MemoryTransferStore struct {
	mu             sync.RWMutex
	transfers      map[string]*data.Transfer
	byToken        map[string]string
	byOnChainID    map[string]string
	byExternalID   map[string]string
	transferLocks  map[string]*sync.Mutex
	locksMu        sync.Mutex
}

// NewMemoryTransferStore constructs an empty in-memory transfer store.
func NewMemoryTransferStore() *MemoryTransferStore {
	return &MemoryTransferStore{
		transfers:     make(map[string]*data.Transfer),
		byToken:       make(map[string]string),
		byOnChainID:   make(map[string]string),
		byExternalID:  make(map[string]string),
		transferLocks: make(map[string]*sync.Mutex),
	}
}

// lockForTransfer returns the mutex guarding id, creating it on first use.
func (s *MemoryTransferStore) lockForTransfer(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.transferLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.transferLocks[id] = l
	}
	return l
}

func (s *MemoryTransferStore) Create(ctx context.Context, t *data.Transfer) error {
	lock := s.lockForTransfer(t.ID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transfers[t.ID]; exists {
		return ErrAlreadyExists
	}

	cp := *t
	s.transfers[t.ID] = &cp
	if t.InteractiveToken != nil && t.InteractiveToken.Value != "" {
		s.byToken[t.InteractiveToken.Value] = t.ID
	}
	if t.OnChainTransactionID != "" {
		s.byOnChainID[t.OnChainTransactionID] = t.ID
	}
	if t.ExternalTransactionID != "" {
		s.byExternalID[t.ExternalTransactionID] = t.ID
	}
	return nil
}

func (s *MemoryTransferStore) GetByID(ctx context.Context, id string) (*data.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transfers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryTransferStore) GetByInteractiveToken(ctx context.Context, token string) (*data.Transfer, error) {
	s.mu.RLock()
	id, ok := s.byToken[token]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *MemoryTransferStore) GetByOnChainID(ctx context.Context, txID string) (*data.Transfer, error) {
	s.mu.RLock()
	id, ok := s.byOnChainID[txID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *MemoryTransferStore) GetByExternalID(ctx context.Context, extID string) (*data.Transfer, error) {
	s.mu.RLock()
	id, ok := s.byExternalID[extID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *MemoryTransferStore) ListByAccount(ctx context.Context, account string, filters data.TransferFilters) ([]*data.Transfer, error) {
	s.mu.RLock()
	matched := make([]*data.Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		if t.Account != account {
			continue
		}
		if filters.AssetCode != "" && t.AssetCode != filters.AssetCode {
			continue
		}
		if filters.Kind != "" && t.Kind != filters.Kind {
			continue
		}
		if !filters.NotOlderThan.IsZero() && t.CreatedAt.Before(filters.NotOlderThan) {
			continue
		}
		cp := *t
		matched = append(matched, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filters.Limit > 0 && len(matched) > filters.Limit {
		matched = matched[:filters.Limit]
	}
	return matched, nil
}

// applyUpdate mutates t in place per update, bumping UpdatedAt and
// maintaining the completed_at / terminal invariant (I4).
func applyUpdate(t *data.Transfer, update TransferUpdate) {
	if update.Status != nil {
		t.Status = *update.Status
		if t.Status.IsTerminal() {
			now := time.Now()
			t.CompletedAt = &now
		} else {
			t.CompletedAt = nil
		}
	}
	if update.Amount != nil {
		t.Amount = update.Amount
	}
	if update.Dest != nil {
		t.Dest = *update.Dest
	}
	if update.DestExtra != nil {
		t.DestExtra = *update.DestExtra
	}
	if update.OnChainTransactionID != nil {
		t.OnChainTransactionID = *update.OnChainTransactionID
	}
	if update.ExternalTransactionID != nil {
		t.ExternalTransactionID = *update.ExternalTransactionID
	}
	if update.StatusMessage != nil {
		t.StatusMessage = *update.StatusMessage
	}
	if update.Metadata != nil {
		t.Metadata = update.Metadata
	}
	t.UpdatedAt = time.Now()
}

func (s *MemoryTransferStore) Update(ctx context.Context, id string, update TransferUpdate) (*data.Transfer, error) {
	lock := s.lockForTransfer(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[id]
	if !ok {
		return nil, ErrNotFound
	}

	oldOnChainID, oldExternalID := t.OnChainTransactionID, t.ExternalTransactionID
	applyUpdate(t, update)

	if update.OnChainTransactionID != nil && *update.OnChainTransactionID != oldOnChainID {
		delete(s.byOnChainID, oldOnChainID)
		if t.OnChainTransactionID != "" {
			s.byOnChainID[t.OnChainTransactionID] = id
		}
	}
	if update.ExternalTransactionID != nil && *update.ExternalTransactionID != oldExternalID {
		delete(s.byExternalID, oldExternalID)
		if t.ExternalTransactionID != "" {
			s.byExternalID[t.ExternalTransactionID] = id
		}
	}

	cp := *t
	return &cp, nil
}

func (s *MemoryTransferStore) Delete(ctx context.Context, id string) error {
	lock := s.lockForTransfer(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.transfers, id)
	if t.InteractiveToken != nil {
		delete(s.byToken, t.InteractiveToken.Value)
	}
	if t.OnChainTransactionID != "" {
		delete(s.byOnChainID, t.OnChainTransactionID)
	}
	if t.ExternalTransactionID != "" {
		delete(s.byExternalID, t.ExternalTransactionID)
	}
	return nil
}

// CompleteInteractive is the single mutation guard described in spec §9: it
// holds the per-transfer lock across the read, the token validity check, and
// the joint write of consumed=true + the new status, so no caller can ever
// observe the token consumed without the status having advanced.
func (s *MemoryTransferStore) CompleteInteractive(ctx context.Context, id, token string, nextStatus func(data.Transfer) data.TransferStatus) (*data.Transfer, error) {
	lock := s.lockForTransfer(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[id]
	if !ok {
		return nil, ErrNotFound
	}

	tok := t.InteractiveToken
	if tok == nil || tok.Value != token || tok.Consumed || time.Now().After(tok.ExpiresAt) {
		return nil, ErrInteractiveTokenInvalid
	}

	tok.Consumed = true
	t.Status = nextStatus(*t)
	if t.Status.IsTerminal() {
		now := time.Now()
		t.CompletedAt = &now
	}
	t.UpdatedAt = time.Now()

	cp := *t
	return &cp, nil
}

var _ TransferStore = (*MemoryTransferStore)(nil)
