package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nsaronson/next-step-paws-sub000/internal/model"
)

// mockSender is a mock implementation of the Sender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "paws_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.PushSubscription{}))
	return db
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, newTestDB(t), &webpush.Options{}, zerolog.Nop())

	wp.Dispatch(Event{UserID: "u1", Message: "hello"})

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, "u1", job.UserID)
		assert.Equal(t, "hello", job.Message)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_FanOut(t *testing.T) {
	db := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{}, zerolog.Nop())

	require.NoError(t, db.Create(&model.PushSubscription{Endpoint: "https://push.example/a", UserID: "u1", P256DH: "k1", Auth: "a1"}).Error)
	require.NoError(t, db.Create(&model.PushSubscription{Endpoint: "https://push.example/b", UserID: "u1", P256DH: "k2", Auth: "a2"}).Error)
	require.NoError(t, db.Create(&model.PushSubscription{Endpoint: "https://push.example/c", UserID: "u2", P256DH: "k3", Auth: "a3"}).Error)

	var wg sync.WaitGroup
	wg.Add(2)

	var mu sync.Mutex
	var endpoints []string
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			assert.Equal(t, "A spot opened up in Puppy Basics!", string(payload))
			mu.Lock()
			endpoints = append(endpoints, sub.Endpoint)
			mu.Unlock()
			wg.Done()
			return &http.Response{
				StatusCode: http.StatusCreated,
				Body:       io.NopCloser(bytes.NewBufferString("")),
			}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	// Only u1's two subscriptions should receive the event.
	wp.Dispatch(Event{UserID: "u1", Message: "A spot opened up in Puppy Basics!"})
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"https://push.example/a", "https://push.example/b"}, endpoints)
}

func TestWorkerPool_PrunesExpiredSubscription(t *testing.T) {
	db := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{}, zerolog.Nop())

	require.NoError(t, db.Create(&model.PushSubscription{Endpoint: "https://push.example/expired", UserID: "u1", P256DH: "k", Auth: "a"}).Error)

	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusGone,
				Body:       io.NopCloser(bytes.NewBufferString("")),
			}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Dispatch(Event{UserID: "u1", Message: "see you soon"})

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&model.PushSubscription{}).Where("endpoint = ?", "https://push.example/expired").Count(&count)
		return count == 0
	}, 2*time.Second, 50*time.Millisecond)
}

func TestWorkerPool_SendFailureKeepsSubscription(t *testing.T) {
	db := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{}, zerolog.Nop())

	require.NoError(t, db.Create(&model.PushSubscription{Endpoint: "https://push.example/flaky", UserID: "u1", P256DH: "k", Auth: "a"}).Error)

	var wg sync.WaitGroup
	wg.Add(1)
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			wg.Done()
			return nil, assert.AnError
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Dispatch(Event{UserID: "u1", Message: "hello"})
	wg.Wait()

	// A transient failure must not prune the subscription.
	time.Sleep(100 * time.Millisecond)
	var count int64
	db.Model(&model.PushSubscription{}).Where("endpoint = ?", "https://push.example/flaky").Count(&count)
	assert.Equal(t, int64(1), count)
}
