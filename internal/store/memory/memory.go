package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spigell/bidwin/internal/tender"
)

// Store keeps RFPs and products in process memory. Records are deep copied on the
// way in and out so callers never share state with the store.
type Store struct {
	mu       sync.RWMutex
	rfps     map[int]*tender.RFP
	products []tender.Product
	nextID   int
	now      func() time.Time
}

func New() *Store {
	return &Store{
		rfps:   make(map[int]*tender.RFP),
		nextID: 1,
		now:    time.Now,
	}
}

func (s *Store) CreateRFP(_ context.Context, rfp *tender.RFP) (*tender.RFP, error) {
	if rfp == nil {
		return nil, fmt.Errorf("rfp is required")
	}

	stored, err := clone(rfp)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored.ID = s.nextID
	s.nextID++
	if stored.Status == "" {
		stored.Status = tender.StatusNew
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	s.rfps[stored.ID] = stored

	return clone(stored)
}

func (s *Store) GetRFP(_ context.Context, id int) (*tender.RFP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rfp, ok := s.rfps[id]
	if !ok {
		return nil, fmt.Errorf("rfp %d: %w", id, tender.ErrNotFound)
	}
	return clone(rfp)
}

func (s *Store) FindRFPByFile(_ context.Context, fileURL string) (*tender.RFP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rfp := range s.rfps {
		if rfp.FileURL == fileURL {
			return clone(rfp)
		}
	}
	return nil, fmt.Errorf("rfp with file %q: %w", fileURL, tender.ErrNotFound)
}

func (s *Store) ListRFPs(_ context.Context) ([]*tender.RFP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int, 0, len(s.rfps))
	for id := range s.rfps {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]*tender.RFP, 0, len(ids))
	for _, id := range ids {
		rfp, err := clone(s.rfps[id])
		if err != nil {
			return nil, err
		}
		out = append(out, rfp)
	}
	return out, nil
}

func (s *Store) SaveRecord(_ context.Context, id int, status tender.Status, record *tender.Record) error {
	var copied *tender.Record
	if record != nil {
		var err error
		if copied, err = clone(record); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rfp, ok := s.rfps[id]
	if !ok {
		return fmt.Errorf("rfp %d: %w", id, tender.ErrNotFound)
	}
	rfp.Data = copied
	rfp.Status = status
	return nil
}

func (s *Store) SetStatus(_ context.Context, id int, status tender.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rfp, ok := s.rfps[id]
	if !ok {
		return fmt.Errorf("rfp %d: %w", id, tender.ErrNotFound)
	}
	rfp.Status = status
	return nil
}

func (s *Store) ListProducts(_ context.Context) ([]tender.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out, err := clone(&s.products)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func (s *Store) SeedProducts(_ context.Context, products []tender.Product) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.products) > 0 {
		return 0, nil
	}

	copied, err := clone(&products)
	if err != nil {
		return 0, err
	}
	for i := range *copied {
		if (*copied)[i].ID == 0 {
			(*copied)[i].ID = i + 1
		}
	}
	s.products = *copied

	return len(s.products), nil
}

func (s *Store) Close() {}

// clone copies values through their JSON form, the same representation the
// postgres store persists.
func clone[T any](v *T) (*T, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("copy record: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("copy record: %w", err)
	}
	return &out, nil
}
