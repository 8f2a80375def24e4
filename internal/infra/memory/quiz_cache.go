package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"livequiz-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizCache memoizes quiz snapshots in process for a bounded lifetime.
// Concurrent misses for the same quiz collapse into a single loader
// call; expired entries are swept opportunistically on every fill so
// the map does not grow with dead quizzes.
type QuizCache struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	group  singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	quiz    domain.Quiz
	staleAt time.Time
}

func NewQuizCache(loader QuizLoader, ttl time.Duration) *QuizCache {
	return &QuizCache{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *QuizCache) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := c.lookup(quizID); ok {
		return quiz, nil
	}

	v, err, _ := c.group.Do(quizID, func() (interface{}, error) {
		// Another caller may have filled the entry while this one
		// waited on the flight.
		if quiz, ok := c.lookup(quizID); ok {
			return quiz, nil
		}
		quiz, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		c.fill(quizID, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return v.(domain.Quiz), nil
}

func (c *QuizCache) lookup(quizID string) (domain.Quiz, bool) {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[quizID]
	if !ok || !entry.staleAt.After(now) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (c *QuizCache) fill(quizID string, quiz domain.Quiz) {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, entry := range c.entries {
		if !entry.staleAt.After(now) {
			delete(c.entries, id)
		}
	}
	c.entries[quizID] = cacheEntry{quiz: quiz, staleAt: now.Add(jitterTTL(c.ttl))}
}

// jitterTTL spreads expirations by up to 10% so a burst of sessions
// created together does not refill the cache in lockstep. Fills for
// distinct quiz IDs run concurrently, so this uses the locked global
// rand source rather than a per-cache one.
func jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl + time.Duration(rand.Int63n(int64(ttl)/10+1))
}

// StaticQuizLoader serves quizzes from a fixed map. It backs the demo
// configuration and tests that do not need Postgres.
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}
