package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// lazyClient builds a client without contacting a server; mongo.Connect only
// starts background monitoring.
func lazyClient(t *testing.T) *mongo.Client {
	t.Helper()
	client, err := mongo.Connect(options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	})
	return client
}

func TestAcquireConcurrentSingleAttempt(t *testing.T) {
	client := lazyClient(t)
	release := make(chan struct{})
	var attempts atomic.Int32

	m := NewManager(Config{Name: "catalog"}, WithConnectFunc(func(ctx context.Context) (*mongo.Client, error) {
		attempts.Add(1)
		<-release
		return client, nil
	}))

	const callers = 32
	results := make([]*mongo.Database, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Acquire(context.Background())
		}(i)
	}

	assert.Eventually(t, func() bool { return attempts.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), attempts.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, "catalog", results[0].Name())
}

func TestAcquireReusesHandle(t *testing.T) {
	client := lazyClient(t)
	var attempts atomic.Int32
	m := NewManager(Config{}, WithConnectFunc(func(ctx context.Context) (*mongo.Client, error) {
		attempts.Add(1)
		return client, nil
	}))

	first, err := m.Acquire(context.Background())
	require.NoError(t, err)
	second, err := m.Acquire(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, defaultDBName, first.Name())
}

func TestAcquireRetriesAfterFailure(t *testing.T) {
	client := lazyClient(t)
	boom := errors.New("server selection timeout")
	var attempts atomic.Int32
	m := NewManager(Config{Name: "catalog"}, WithConnectFunc(func(ctx context.Context) (*mongo.Client, error) {
		if attempts.Add(1) == 1 {
			return nil, boom
		}
		return client, nil
	}))

	db, err := m.Acquire(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, db)
	assert.Nil(t, m.cached())

	db, err = m.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, db)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestAcquireCallerCancellationDoesNotAbortSharedAttempt(t *testing.T) {
	client := lazyClient(t)
	release := make(chan struct{})
	m := NewManager(Config{}, WithConnectFunc(func(ctx context.Context) (*mongo.Client, error) {
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return client, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Acquire(ctx)
		done <- err
	}()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	db, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, db)
}

func TestAcquireWithoutURI(t *testing.T) {
	m := NewManager(Config{})

	_, err := m.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrNoURI)
}

func TestCloseWithoutConnection(t *testing.T) {
	m := NewManager(Config{URI: "mongodb://127.0.0.1:1"})
	assert.NoError(t, m.Close(context.Background()))
}
