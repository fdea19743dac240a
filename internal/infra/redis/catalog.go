package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-engine/internal/domain"
)

// DefinitionLoader fetches quiz definitions from a backing store.
type DefinitionLoader interface {
	LoadDefinition(ctx context.Context, quizID string) (domain.QuizDefinition, error)
}

// Catalog caches quiz definitions in Redis and falls back to a loader on cache miss.
// Definitions are stored as JSON: SET quiz:{quizID}:definition {json} PX ttl
type Catalog struct {
	client *redis.Client
	loader DefinitionLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCatalog(client *redis.Client, loader DefinitionLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Catalog) GetDefinition(ctx context.Context, quizID string) (domain.QuizDefinition, error) {
	if def, ok := c.cached(ctx, quizID); ok {
		return def, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if def, ok := c.cached(ctx, quizID); ok {
			return def, nil
		}

		def, err := c.loader.LoadDefinition(ctx, quizID)
		if err != nil {
			return domain.QuizDefinition{}, err
		}

		if raw, err := json.Marshal(def); err == nil {
			_ = c.client.Set(ctx, definitionKey(quizID), raw, c.ttlWithJitter()).Err()
		}
		return def, nil
	})
	if err != nil {
		return domain.QuizDefinition{}, err
	}
	return result.(domain.QuizDefinition), nil
}

// Invalidate deletes the cached definition.
func (c *Catalog) Invalidate(ctx context.Context, quizID string) error {
	c.sf.Forget(quizID)
	return c.client.Del(ctx, definitionKey(quizID)).Err()
}

func (c *Catalog) cached(ctx context.Context, quizID string) (domain.QuizDefinition, bool) {
	raw, err := c.client.Get(ctx, definitionKey(quizID)).Bytes()
	if err != nil {
		return domain.QuizDefinition{}, false
	}
	var def domain.QuizDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return domain.QuizDefinition{}, false
	}
	return def, true
}

func definitionKey(quizID string) string {
	return "quiz:" + quizID + ":definition"
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
