package quotes

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hf-quote-tgbot-go/internal/models"
)

// ErrEmptyResource is returned when the quote file holds an unusable entry
var ErrEmptyResource = errors.New("quote resource has an empty field")

type quoteKey struct {
	topic string
	lang  models.Language
}

// Store holds the static quote collection loaded at startup
type Store struct {
	entries []models.QuoteEntry
	byKey   map[quoteKey][]string

	randMu sync.Mutex
	rand   *rand.Rand

	path   string
	logger logrus.FieldLogger
}

// Option configures a Store
type Option func(*Store)

// WithRand replaces the random source used to pick among matching quotes
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rand = r }
}

// WithLogger attaches a logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) { s.logger = logger }
}

// Load reads a JSON array of {"topic","lang","quote"} entries
func Load(path string, opts ...Option) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quotes file: %w", err)
	}

	var entries []models.QuoteEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse quotes file %s: %w", path, err)
	}

	s, err := New(entries, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.path = path

	if s.logger != nil {
		fields := logrus.Fields{"path": path, "count": s.Len()}
		for _, lang := range models.SupportedLanguages {
			fields["topics_"+string(lang)] = strings.Join(s.Topics(lang), ",")
		}
		s.logger.WithFields(fields).Info("Quotes loaded")
	}
	return s, nil
}

// New builds a Store from in-memory entries
func New(entries []models.QuoteEntry, opts ...Option) (*Store, error) {
	s := &Store{
		entries: make([]models.QuoteEntry, 0, len(entries)),
		byKey:   make(map[quoteKey][]string),
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}

	for i, e := range entries {
		topic := normalizeTopic(e.Topic)
		if topic == "" || e.Lang == "" || strings.TrimSpace(e.Quote) == "" {
			return nil, fmt.Errorf("entry %d: %w", i, ErrEmptyResource)
		}
		key := quoteKey{topic: topic, lang: e.Lang}
		s.byKey[key] = append(s.byKey[key], e.Quote)
		s.entries = append(s.entries, e)
	}

	return s, nil
}

// Lookup returns a random quote for topic in lang
func (s *Store) Lookup(topic string, lang models.Language) (string, bool) {
	matches := s.byKey[quoteKey{topic: normalizeTopic(topic), lang: lang}]
	if len(matches) == 0 {
		return "", false
	}

	s.randMu.Lock()
	i := s.rand.Intn(len(matches))
	s.randMu.Unlock()

	return matches[i], true
}

// Len returns the number of loaded entries
func (s *Store) Len() int {
	return len(s.entries)
}

// Topics lists the distinct topics available in lang, sorted
func (s *Store) Topics(lang models.Language) []string {
	topics := make([]string, 0)
	for key := range s.byKey {
		if key.lang == lang {
			topics = append(topics, key.topic)
		}
	}
	sort.Strings(topics)
	return topics
}

func normalizeTopic(topic string) string {
	return strings.ToLower(strings.Join(strings.Fields(topic), " "))
}
