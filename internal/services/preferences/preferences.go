// Package preferences keeps each user's chosen reply language.
//
// The store lives only in process memory. Preferences are lost on restart
// and every user falls back to the default language until they run /lang again.
package preferences

import (
	"github.com/patrickmn/go-cache"

	"github.com/hf-quote-tgbot-go/internal/models"
)

// Store is safe for concurrent use
type Store struct {
	langs *cache.Cache
}

func NewStore() *Store {
	return &Store{langs: cache.New(cache.NoExpiration, cache.NoExpiration)}
}

// Get returns the language the user picked, if any
func (s *Store) Get(userID string) (models.Language, bool) {
	if v, found := s.langs.Get(userID); found {
		return v.(models.Language), true
	}
	return "", false
}

func (s *Store) Set(userID string, lang models.Language) {
	s.langs.Set(userID, lang, cache.NoExpiration)
}

// Resolve returns the user's language or def when none was chosen
func (s *Store) Resolve(userID string, def models.Language) models.Language {
	if lang, ok := s.Get(userID); ok {
		return lang
	}
	return def
}
