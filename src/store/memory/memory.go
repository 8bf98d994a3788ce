// Package memory holds map-backed stores used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"vpass/src/models"
	"vpass/src/types"

	"github.com/google/uuid"
)

type PassStore struct {
	mu    sync.RWMutex
	data  map[uuid.UUID]models.Pass
	codes map[string]uuid.UUID
}

func NewPassStore() *PassStore {
	return &PassStore{
		data:  make(map[uuid.UUID]models.Pass),
		codes: make(map[string]uuid.UUID),
	}
}

func codeKey(tenantID uint, code string) string {
	return fmt.Sprintf("%d:%s", tenantID, code)
}

func (s *PassStore) Create(_ context.Context, pass *models.Pass) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := codeKey(pass.TenantID, pass.PassCode)
	if _, taken := s.codes[key]; taken {
		return types.ErrDuplicatePassCode
	}
	if pass.ID == uuid.Nil {
		pass.ID = uuid.New()
	}
	if pass.CreatedAt.IsZero() {
		pass.CreatedAt = time.Now().UTC()
	}
	pass.Version = 0
	s.data[pass.ID] = *pass
	s.codes[key] = pass.ID
	return nil
}

func (s *PassStore) Get(_ context.Context, id uuid.UUID) (*models.Pass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("pass %s: %w", id, types.ErrNotFound)
	}
	return &p, nil
}

func (s *PassStore) FindByCode(_ context.Context, tenantID uint, code string) (*models.Pass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.codes[codeKey(tenantID, code)]
	if !ok {
		return nil, fmt.Errorf("pass code %s: %w", code, types.ErrNotFound)
	}
	p := s.data[id]
	return &p, nil
}

func (s *PassStore) Update(_ context.Context, pass *models.Pass) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[pass.ID]
	if !ok {
		return fmt.Errorf("pass %s: %w", pass.ID, types.ErrNotFound)
	}
	if current.Version != pass.Version {
		return fmt.Errorf("pass %s at version %d: %w", pass.ID, pass.Version, types.ErrConcurrentModification)
	}
	next := *pass
	// identity and creation fields are immutable
	next.TenantID = current.TenantID
	next.PassCode = current.PassCode
	next.CreatedBy = current.CreatedBy
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version + 1
	s.data[pass.ID] = next
	pass.Version = next.Version
	return nil
}

func (s *PassStore) ListOverdueApproved(_ context.Context, now time.Time) ([]*models.Pass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Pass
	for _, p := range s.data {
		if p.Status == types.PASS_APPROVED && p.VisitDateTime.Before(now) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitDateTime.Before(out[j].VisitDateTime) })
	return out, nil
}

func (s *PassStore) ListByTenant(_ context.Context, tenantID uint, status types.PassStatus, page, size int) ([]*models.Pass, error) {
	all := s.filter(func(p *models.Pass) bool {
		return p.TenantID == tenantID && (status == "" || p.Status == status)
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, page, size), nil
}

func (s *PassStore) ListByCreator(_ context.Context, tenantID, userID uint, page, size int) ([]*models.Pass, error) {
	all := s.filter(func(p *models.Pass) bool {
		return p.TenantID == tenantID && p.CreatedBy == userID
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, page, size), nil
}

func (s *PassStore) ListVisitingBetween(_ context.Context, tenantID uint, from, to time.Time, status types.PassStatus, page, size int) ([]*models.Pass, error) {
	all := s.filter(visitingBetween(tenantID, from, to, status))
	sort.Slice(all, func(i, j int) bool { return all[i].VisitDateTime.Before(all[j].VisitDateTime) })
	return paginate(all, page, size), nil
}

func (s *PassStore) CountVisitingBetween(_ context.Context, tenantID uint, from, to time.Time, status types.PassStatus) (int64, error) {
	return int64(len(s.filter(visitingBetween(tenantID, from, to, status)))), nil
}

func visitingBetween(tenantID uint, from, to time.Time, status types.PassStatus) func(*models.Pass) bool {
	return func(p *models.Pass) bool {
		return p.TenantID == tenantID &&
			(status == "" || p.Status == status) &&
			!p.VisitDateTime.Before(from) && p.VisitDateTime.Before(to)
	}
}

// filter returns copies of the passes keep accepts.
func (s *PassStore) filter(keep func(*models.Pass) bool) []*models.Pass {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Pass
	for _, p := range s.data {
		p := p
		if keep(&p) {
			out = append(out, &p)
		}
	}
	return out
}

// paginate never panics: an out of range or overflowing page is empty.
func paginate(all []*models.Pass, page, size int) []*models.Pass {
	if page < 0 || size <= 0 || page > len(all)/size {
		return []*models.Pass{}
	}
	start := page * size
	if start >= len(all) {
		return []*models.Pass{}
	}
	end := start + size
	if end > len(all) || end < start {
		end = len(all)
	}
	return all[start:end]
}
