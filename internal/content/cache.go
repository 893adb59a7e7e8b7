package content

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// Cache provides Redis-backed caching for quiz and glossary reads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ReadCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func quizKey(id int64) string {
	return "content:quiz:" + strconv.FormatInt(id, 10)
}

func termsKey(category string) string {
	return "content:terms:" + category
}

// GetQuiz returns the cached quiz or nil on a miss.
func (c *Cache) GetQuiz(ctx context.Context, id int64) (*Quiz, error) {
	data, err := c.client.Get(ctx, quizKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var quiz Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// SetQuiz stores a quiz with the configured TTL.
func (c *Cache) SetQuiz(ctx context.Context, quiz Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, quizKey(quiz.ID), data, c.ttl).Err()
}

// InvalidateQuiz drops a quiz from the cache after an admin write.
func (c *Cache) InvalidateQuiz(ctx context.Context, id int64) error {
	return c.client.Del(ctx, quizKey(id)).Err()
}

// GetTerms returns the cached term list for a category or nil on a miss.
func (c *Cache) GetTerms(ctx context.Context, category string) ([]Term, error) {
	data, err := c.client.Get(ctx, termsKey(category)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var terms []Term
	if err := json.Unmarshal(data, &terms); err != nil {
		return nil, err
	}
	return terms, nil
}

// SetTerms stores a term list for a category.
func (c *Cache) SetTerms(ctx context.Context, category string, terms []Term) error {
	data, err := json.Marshal(terms)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, termsKey(category), data, c.ttl).Err()
}

// InvalidateTerms drops every cached term list. The key space is small
// (one entry per category plus the unfiltered list) so a scan is fine.
func (c *Cache) InvalidateTerms(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "content:terms:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
