// Package cache keeps read-through copies of certificate records in Redis.
// Only certificates are cached: they never change after creation. Holders,
// counters and validity answers always come from the backing store.
//
// Keys are namespaced by the backing database's instance id. Ids restart at 0
// in a new database, so an unnamespaced key would serve a record the store
// no longer has, or pair it with a different certificate's owner.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"warranty/internal/warranty/metrics"
	"warranty/internal/warranty/models"
	"warranty/pkg/domain"
	"warranty/pkg/platform/circuit"
	"warranty/pkg/platform/tx"
)

const keyPrefix = "warranty:"

// DefaultTTL bounds how long a cached record lives.
const DefaultTTL = time.Hour

// CertificateStore is the store being cached.
type CertificateStore interface {
	Append(ctx context.Context, cert *models.Certificate) (domain.CertificateID, error)
	FindByID(ctx context.Context, id domain.CertificateID) (*models.Certificate, error)
	Count(ctx context.Context) (uint64, error)
	ListByParty(ctx context.Context, party domain.Address) ([]*models.Certificate, error)
}

// RedisCertificates decorates a CertificateStore with a Redis read-through
// cache on FindByID. Redis failures fall back to the store; after repeated
// failures the breaker opens and Redis is skipped until a probe succeeds.
type RedisCertificates struct {
	CertificateStore
	client    redis.Cmdable
	namespace string
	ttl       time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	breaker   *circuit.Breaker
}

type Option func(*RedisCertificates)

func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCertificates) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *RedisCertificates) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *RedisCertificates) {
		c.metrics = m
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *RedisCertificates) {
		if b != nil {
			c.breaker = b
		}
	}
}

// NewRedisCertificates caches next under namespace, which must identify the
// database next reads from (see sqlstore.InstanceID).
func NewRedisCertificates(next CertificateStore, client redis.Cmdable, namespace string, opts ...Option) *RedisCertificates {
	c := &RedisCertificates{
		CertificateStore: next,
		client:           client,
		namespace:        namespace,
		ttl:              DefaultTTL,
		logger:           slog.Default(),
		breaker:          circuit.New("certificate-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key of a certificate stored in the database namespace.
func Key(namespace string, id domain.CertificateID) string {
	return keyPrefix + namespace + ":certificate:" + strconv.FormatUint(uint64(id), 10)
}

// FindByID serves from Redis when it can. Inside a write transaction the
// cache is bypassed entirely, since the row read there may still roll back.
func (c *RedisCertificates) FindByID(ctx context.Context, id domain.CertificateID) (*models.Certificate, error) {
	if tx.InWrite(ctx) {
		return c.CertificateStore.FindByID(ctx, id)
	}

	if !c.breaker.Allow() {
		c.count("bypass")
		return c.CertificateStore.FindByID(ctx, id)
	}

	key := Key(c.namespace, id)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.recordSuccess(ctx)
		var cert models.Certificate
		if err := json.Unmarshal(raw, &cert); err == nil {
			c.count("hit")
			return &cert, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached certificate", "certificate_id", id)
		c.count("error")
	case errors.Is(err, redis.Nil):
		c.recordSuccess(ctx)
		c.count("miss")
	default:
		c.logger.WarnContext(ctx, "certificate cache unavailable", "error", err, "certificate_id", id)
		c.count("error")
		c.recordFailure(ctx)
		return c.CertificateStore.FindByID(ctx, id)
	}

	cert, err := c.CertificateStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(cert); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "failed to cache certificate", "error", err, "certificate_id", id)
			c.recordFailure(ctx)
		}
	}
	return cert, nil
}

func (c *RedisCertificates) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "certificate cache recovered", "breaker", c.breaker.Name())
	}
}

func (c *RedisCertificates) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "certificate cache disabled after repeated failures", "breaker", c.breaker.Name())
	}
}

func (c *RedisCertificates) count(result string) {
	if c.metrics != nil {
		c.metrics.IncrementCache(result)
	}
}
