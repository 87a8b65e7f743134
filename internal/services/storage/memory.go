package storage

import (
	"context"
	"sort"

	"github.com/patrickmn/go-cache"

	"github.com/hf-quote-tgbot-go/internal/models"
)

// MemoryDirectory keeps users in process memory; contents are lost on restart
type MemoryDirectory struct {
	users *cache.Cache
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users: cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

func (m *MemoryDirectory) Upsert(ctx context.Context, user models.UserRecord) error {
	m.users.Set(user.UserID, user, cache.NoExpiration)
	return nil
}

func (m *MemoryDirectory) Get(ctx context.Context, userID string) (*models.UserRecord, error) {
	if v, found := m.users.Get(userID); found {
		user := v.(models.UserRecord)
		return &user, nil
	}
	return nil, ErrUserNotFound
}

func (m *MemoryDirectory) GetAll(ctx context.Context) ([]models.UserRecord, error) {
	items := m.users.Items()
	users := make([]models.UserRecord, 0, len(items))
	for _, item := range items {
		users = append(users, item.Object.(models.UserRecord))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users, nil
}

func (m *MemoryDirectory) Close() error {
	m.users.Flush()
	return nil
}
