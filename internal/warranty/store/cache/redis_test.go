package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warranty/internal/warranty/metrics"
	"warranty/internal/warranty/models"
	"warranty/internal/warranty/store/memory"
	"warranty/internal/warranty/store/storetest"
	"warranty/pkg/platform/circuit"
	"warranty/pkg/platform/sentinel"
)

func seed(t *testing.T) (*memory.CertificateStore, *memory.Runner) {
	t.Helper()
	return seedProduct(t, "TV")
}

func seedProduct(t *testing.T, product string) (*memory.CertificateStore, *memory.Runner) {
	t.Helper()
	store := memory.NewCertificateStore()
	runner := memory.NewRunner()
	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		_, err := store.Append(ctx, &models.Certificate{
			BrandName: "Sony", Product: product, Category: "Electronics",
			Price: 900, WarrantyPeriod: 24,
			CreationTime:  time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			SellerAddress: storetest.Seller, BuyerAddress: storetest.Buyer,
		})
		return err
	})
	require.NoError(t, err)
	return store, runner
}

// mapRedis is an in-process stand-in for the Get/Set pair the cache uses.
// Any other command panics through the nil embedded interface.
type mapRedis struct {
	redis.Cmdable
	mu   sync.Mutex
	data map[string]string
}

func newMapRedis() *mapRedis {
	return &mapRedis{data: map[string]string{}}
}

func (m *mapRedis) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (m *mapRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

// unreachable returns a client whose every command fails fast.
func unreachable() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestKey(t *testing.T) {
	assert.Equal(t, "warranty:db-1:certificate:42", Key("db-1", 42))
}

func TestFindByID_FallsBackWhenRedisIsDown(t *testing.T) {
	store, _ := seed(t)
	m := metrics.New(prometheus.NewRegistry())
	client := unreachable()
	defer client.Close()
	c := NewRedisCertificates(store, client, store.InstanceID(), WithMetrics(m))

	cert, err := c.FindByID(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "TV", cert.Product)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.CacheRequests.WithLabelValues("error")))

	_, err = c.FindByID(context.Background(), 7)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestFindByID_BypassesCacheInsideWriteTransaction(t *testing.T) {
	store, runner := seed(t)
	m := metrics.New(prometheus.NewRegistry())
	client := unreachable()
	defer client.Close()
	c := NewRedisCertificates(store, client, store.InstanceID(), WithMetrics(m))

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		_, err := c.FindByID(ctx, 0)
		return err
	})
	require.NoError(t, err)
	assert.Zero(t, promtest.ToFloat64(m.CacheRequests.WithLabelValues("error")))
}

func TestOtherOperationsPassThrough(t *testing.T) {
	store, _ := seed(t)
	client := unreachable()
	defer client.Close()
	c := NewRedisCertificates(store, client, store.InstanceID())

	count, err := c.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	certs, err := c.ListByParty(context.Background(), storetest.Buyer)
	require.NoError(t, err)
	assert.Len(t, certs, 1)
}

func TestFindByID_BreakerSkipsRedisAfterRepeatedFailures(t *testing.T) {
	store, _ := seed(t)
	m := metrics.New(prometheus.NewRegistry())
	client := unreachable()
	defer client.Close()
	breaker := circuit.New("test-cache", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	c := NewRedisCertificates(store, client, store.InstanceID(), WithMetrics(m), WithBreaker(breaker))

	for i := 0; i < 3; i++ {
		cert, err := c.FindByID(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, "TV", cert.Product)
	}

	assert.True(t, breaker.IsOpen())
	assert.Equal(t, 2.0, promtest.ToFloat64(m.CacheRequests.WithLabelValues("error")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.CacheRequests.WithLabelValues("bypass")))
}

func TestFindByID_ServesCachedRecordForSameStore(t *testing.T) {
	store, _ := seed(t)
	m := metrics.New(prometheus.NewRegistry())
	c := NewRedisCertificates(store, newMapRedis(), store.InstanceID(), WithMetrics(m))

	for i := 0; i < 2; i++ {
		cert, err := c.FindByID(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, "TV", cert.Product)
	}
	assert.Equal(t, 1.0, promtest.ToFloat64(m.CacheRequests.WithLabelValues("miss")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.CacheRequests.WithLabelValues("hit")))
}

func TestFindByID_RestartedStoreDoesNotServeOldRecords(t *testing.T) {
	shared := newMapRedis()
	ctx := context.Background()

	before, _ := seed(t)
	_, err := NewRedisCertificates(before, shared, before.InstanceID()).FindByID(ctx, 0)
	require.NoError(t, err)
	require.Len(t, shared.data, 1)

	t.Run("empty store reports the id as missing", func(t *testing.T) {
		empty := memory.NewCertificateStore()
		c := NewRedisCertificates(empty, shared, empty.InstanceID())

		count, err := c.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		_, err = c.FindByID(ctx, 0)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("reused id returns the new record", func(t *testing.T) {
		reset, _ := seedProduct(t, "Radio")
		c := NewRedisCertificates(reset, shared, reset.InstanceID())

		cert, err := c.FindByID(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, "Radio", cert.Product)
	})
}
