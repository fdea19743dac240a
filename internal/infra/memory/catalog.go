package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-engine/internal/domain"
)

// DefinitionLoader fetches quiz definitions from a backing store.
type DefinitionLoader interface {
	LoadDefinition(ctx context.Context, quizID string) (domain.QuizDefinition, error)
}

// Catalog caches quiz definitions with TTL to avoid repeated store hits.
type Catalog struct {
	loader DefinitionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedDefinition
}

type cachedDefinition struct {
	def       domain.QuizDefinition
	expiresAt time.Time
}

func NewCatalog(loader DefinitionLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedDefinition),
	}
}

func (c *Catalog) GetDefinition(ctx context.Context, quizID string) (domain.QuizDefinition, error) {
	if def, ok := c.lookup(quizID); ok {
		return def, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		if def, ok := c.lookup(quizID); ok {
			return def, nil
		}

		def, err := c.loader.LoadDefinition(ctx, quizID)
		if err != nil {
			return domain.QuizDefinition{}, err
		}
		if c.ttl <= 0 {
			return def, nil
		}

		c.mu.Lock()
		c.cache[quizID] = cachedDefinition{
			def:       def,
			expiresAt: c.clock().Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return def, nil
	})
	if err != nil {
		return domain.QuizDefinition{}, err
	}
	return result.(domain.QuizDefinition), nil
}

// Invalidate drops the cached definition so the next read reloads it.
func (c *Catalog) Invalidate(_ context.Context, quizID string) error {
	c.mu.Lock()
	delete(c.cache, quizID)
	c.mu.Unlock()
	c.sf.Forget(quizID)
	return nil
}

func (c *Catalog) lookup(quizID string) (domain.QuizDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.QuizDefinition{}, false
	}
	return entry.def, true
}

// ttlWithJitter must be called with mu held.
func (c *Catalog) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
