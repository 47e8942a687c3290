package payments

import (
	"context"
	"sync"

	"github.com/avelarlabs/solpay-backend/pkg/enums"
	pkgerrors "github.com/avelarlabs/solpay-backend/pkg/errors"
)

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	PayerReference string
	Status         *enums.IntentStatus
}

// Store holds payment intents. Implementations must allow concurrent reads
// and serialize mutations per intent; Mutate and RemoveWhen are the only
// read-modify-write entry points so status transitions stay atomic with
// respect to concurrent checks and the cleanup sweep.
type Store interface {
	Create(ctx context.Context, intent PaymentIntent) error
	Get(ctx context.Context, id string) (PaymentIntent, error)
	List(ctx context.Context, filter ListFilter) ([]PaymentIntent, error)
	Mutate(ctx context.Context, id string, fn func(intent *PaymentIntent) error) (PaymentIntent, error)
	RemoveWhen(ctx context.Context, id string, when func(intent PaymentIntent) bool) (bool, error)
}

// NewMemoryStore builds the volatile in-memory store. Process restart loses
// all intents; durable deployments substitute their own Store.
func NewMemoryStore() Store {
	return &memoryStore{intents: make(map[string]*PaymentIntent)}
}

type memoryStore struct {
	mu      sync.RWMutex
	intents map[string]*PaymentIntent
}

func (s *memoryStore) Create(ctx context.Context, intent PaymentIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.intents[intent.ID]; exists {
		return pkgerrors.New(pkgerrors.CodeConflict, "intent id already exists")
	}
	stored := intent.clone()
	s.intents[intent.ID] = &stored
	return nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	intent, ok := s.intents[id]
	if !ok {
		return PaymentIntent{}, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	return intent.clone(), nil
}

func (s *memoryStore) List(ctx context.Context, filter ListFilter) ([]PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]PaymentIntent, 0, len(s.intents))
	for _, intent := range s.intents {
		if filter.PayerReference != "" && intent.PayerReference != filter.PayerReference {
			continue
		}
		if filter.Status != nil && intent.Status != *filter.Status {
			continue
		}
		result = append(result, intent.clone())
	}
	return result, nil
}

func (s *memoryStore) Mutate(ctx context.Context, id string, fn func(intent *PaymentIntent) error) (PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.intents[id]
	if !ok {
		return PaymentIntent{}, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	if err := fn(intent); err != nil {
		return PaymentIntent{}, err
	}
	return intent.clone(), nil
}

func (s *memoryStore) RemoveWhen(ctx context.Context, id string, when func(intent PaymentIntent) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.intents[id]
	if !ok {
		return false, nil
	}
	if when != nil && !when(intent.clone()) {
		return false, nil
	}
	delete(s.intents, id)
	return true, nil
}
