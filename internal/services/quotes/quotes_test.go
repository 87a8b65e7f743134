package quotes

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hf-quote-tgbot-go/internal/models"
)

func writeQuotes(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quotes.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAndLookup(t *testing.T) {
	path := writeQuotes(t, `[
		{"topic": "Life", "lang": "en", "quote": "Life is what happens."},
		{"topic": "life", "lang": "az", "quote": "Həyat gözəldir."},
		{"topic": "hope", "lang": "en", "quote": "Hope is a waking dream."}
	]`)

	store, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())

	q, ok := store.Lookup("  LIFE ", models.LanguageEnglish)
	require.True(t, ok)
	assert.Equal(t, "Life is what happens.", q)

	q, ok = store.Lookup("life", models.LanguageAzerbaijani)
	require.True(t, ok)
	assert.Equal(t, "Həyat gözəldir.", q)

	_, ok = store.Lookup("hope", models.LanguageAzerbaijani)
	assert.False(t, ok)

	_, ok = store.Lookup("nonexistent", models.LanguageEnglish)
	assert.False(t, ok)

	assert.Equal(t, []string{"hope", "life"}, store.Topics(models.LanguageEnglish))
}

func TestLoadLogsTopics(t *testing.T) {
	path := writeQuotes(t, `[
		{"topic": "life", "lang": "en", "quote": "a"},
		{"topic": "hope", "lang": "en", "quote": "b"},
		{"topic": "life", "lang": "az", "quote": "c"}
	]`)
	log, hook := test.NewNullLogger()

	_, err := Load(path, WithLogger(log))
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Quotes loaded", entry.Message)
	assert.Equal(t, 3, entry.Data["count"])
	assert.Equal(t, "hope,life", entry.Data["topics_en"])
	assert.Equal(t, "life", entry.Data["topics_az"])
}

func TestLookupPicksAmongMatches(t *testing.T) {
	entries := []models.QuoteEntry{
		{Topic: "love", Lang: models.LanguageEnglish, Quote: "a"},
		{Topic: "love", Lang: models.LanguageEnglish, Quote: "b"},
		{Topic: "love", Lang: models.LanguageEnglish, Quote: "c"},
	}
	store, err := New(entries, WithRand(rand.New(rand.NewSource(1))))
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		q, ok := store.Lookup("love", models.LanguageEnglish)
		require.True(t, ok)
		seen[q] = true
	}
	assert.Len(t, seen, 3)
}

func TestLookupDeterministicWithSeed(t *testing.T) {
	entries := []models.QuoteEntry{
		{Topic: "time", Lang: models.LanguageEnglish, Quote: "x"},
		{Topic: "time", Lang: models.LanguageEnglish, Quote: "y"},
	}
	a, err := New(entries, WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)
	b, err := New(entries, WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		qa, _ := a.Lookup("time", models.LanguageEnglish)
		qb, _ := b.Lookup("time", models.LanguageEnglish)
		assert.Equal(t, qa, qb)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(writeQuotes(t, `{"topic": "life"}`))
	assert.Error(t, err)

	_, err = Load(writeQuotes(t, `[{"topic": "life", "lang": "en", "quote": ""}]`))
	assert.ErrorIs(t, err, ErrEmptyResource)
}
