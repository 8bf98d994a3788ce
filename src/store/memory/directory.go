package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vpass/src/models"
	"vpass/src/types"

	"github.com/google/uuid"
)

type Directory struct {
	mu     sync.RWMutex
	nextID uint
	users  map[uint]models.User
}

func NewDirectory(users ...models.User) *Directory {
	d := &Directory{users: make(map[uint]models.User)}
	for _, u := range users {
		u := u
		_ = d.CreateUser(context.Background(), &u)
	}
	return d
}

func (d *Directory) GetUser(_ context.Context, id uint) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, types.ErrNotFound)
	}
	return &u, nil
}

func (d *Directory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, u := range d.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, types.ErrNotFound)
}

func (d *Directory) GetTenantAdmin(_ context.Context, tenantID uint) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var found *models.User
	for _, u := range d.users {
		if u.TenantID == tenantID && u.Role == types.ROLE_ADMIN {
			if found == nil || u.ID < found.ID {
				u := u
				found = &u
			}
		}
	}
	if found == nil {
		return nil, fmt.Errorf("admin for tenant %d: %w", tenantID, types.ErrNotFound)
	}
	return found, nil
}

func (d *Directory) CreateUser(_ context.Context, user *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, u := range d.users {
		if u.Email == user.Email {
			return fmt.Errorf("user %s: %w", user.Email, types.ErrValidation)
		}
	}
	if user.ID == 0 {
		d.nextID++
		user.ID = d.nextID
	} else if user.ID > d.nextID {
		d.nextID = user.ID
	}
	d.users[user.ID] = *user
	return nil
}

type TrailStore struct {
	mu   sync.Mutex
	rows []models.TrailLog
}

func NewTrailStore() *TrailStore {
	return &TrailStore{}
}

func (t *TrailStore) Record(_ context.Context, entry *models.TrailLog) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	t.rows = append(t.rows, *entry)
	return nil
}

func (t *TrailStore) Entries() []models.TrailLog {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]models.TrailLog(nil), t.rows...)
}
