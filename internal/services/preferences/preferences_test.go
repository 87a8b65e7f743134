package preferences

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hf-quote-tgbot-go/internal/models"
)

func TestStore(t *testing.T) {
	s := NewStore()

	_, ok := s.Get("1")
	assert.False(t, ok)
	assert.Equal(t, models.LanguageEnglish, s.Resolve("1", models.DefaultLanguage))

	s.Set("1", models.LanguageAzerbaijani)
	lang, ok := s.Get("1")
	assert.True(t, ok)
	assert.Equal(t, models.LanguageAzerbaijani, lang)
	assert.Equal(t, models.LanguageAzerbaijani, s.Resolve("1", models.DefaultLanguage))

	_, ok = s.Get("2")
	assert.False(t, ok)
}

func TestStoreConcurrentUse(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprint(i % 5)
			s.Set(id, models.LanguageAzerbaijani)
			s.Get(id)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		lang, ok := s.Get(fmt.Sprint(i))
		assert.True(t, ok)
		assert.Equal(t, models.LanguageAzerbaijani, lang)
	}
}
