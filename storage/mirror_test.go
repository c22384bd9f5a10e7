package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"task-board/domain"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newMirror(t *testing.T, client *redis.Client, channel, key string, ttl time.Duration) (*Mirror, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	return NewMirror(client, logger, channel, key, ttl), hook
}

func sampleBoard() domain.Board {
	return domain.Partition([]domain.Task{
		{ID: "t1", Title: "Write code", Status: domain.StatusTodo, Priority: domain.PriorityHigh},
		{ID: "t2", Title: "Ship", Status: domain.StatusDone, Priority: domain.PriorityLow},
	})
}

func TestMirrorPublishThenLoad(t *testing.T) {
	mr, client := setupRedis(t)
	m, _ := newMirror(t, client, "", "", time.Minute)
	ctx := context.Background()

	if _, ok := m.Load(ctx); ok {
		t.Fatal("expected miss on empty redis")
	}

	b := sampleBoard()
	b.Version = 3
	if err := m.Publish(ctx, b); err != nil {
		t.Fatalf("publish: %v", err)
	}
	got, ok := m.Load(ctx)
	if !ok {
		t.Fatal("expected hit after publish")
	}
	if got.Version != 3 || len(got.Tasks) != 2 || len(got.Todo) != 1 || got.Done[0].ID != "t2" {
		t.Fatalf("unexpected board %+v", got)
	}
	if ttl := mr.TTL(DefaultKey); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}
}

func TestMirrorLoadDropsCorruptEntry(t *testing.T) {
	mr, client := setupRedis(t)
	m, hook := newMirror(t, client, "c", "k", 0)
	if err := mr.Set("k", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok := m.Load(context.Background()); ok {
		t.Fatal("expected miss on corrupt entry")
	}
	if mr.Exists("k") {
		t.Fatal("corrupt entry not deleted")
	}
	if e := hook.LastEntry(); e == nil || e.Message != "dropping corrupt mirrored board" {
		t.Fatalf("expected corrupt entry to be logged on the injected logger, got %+v", e)
	}
}

func TestMirrorPublishFailsWhenRedisDown(t *testing.T) {
	mr, client := setupRedis(t)
	m, hook := newMirror(t, client, "", "", time.Minute)
	mr.Close()
	if err := m.Publish(context.Background(), sampleBoard()); err == nil {
		t.Fatal("expected error with redis down")
	}
	if _, ok := m.Load(context.Background()); ok {
		t.Fatal("expected miss with redis down")
	}
	if e := hook.LastEntry(); e == nil || e.Level != log.WarnLevel || e.Message != "load mirrored board" {
		t.Fatalf("expected load failure on the injected logger, got %+v", e)
	}
}

func TestSubscribeDeliversPublishedBoards(t *testing.T) {
	_, client := setupRedis(t)
	logger, _ := test.NewNullLogger()
	m := NewMirror(client, logger, "chan", "key", time.Minute)

	var mu sync.Mutex
	var got []domain.Board
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Subscribe(ctx, client, "chan", logger, func(b domain.Board) {
			mu.Lock()
			got = append(got, b)
			mu.Unlock()
		})
		close(done)
	}()
	// wait for subscription to start
	time.Sleep(50 * time.Millisecond)

	b := sampleBoard()
	b.Version = 7
	if err := m.Publish(context.Background(), b); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := client.Publish(context.Background(), "chan", "garbage").Err(); err != nil {
		t.Fatalf("publish garbage: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	n := len(got)
	var version uint64
	if n > 0 {
		version = got[0].Version
	}
	mu.Unlock()
	if n != 1 || version != 7 {
		t.Fatalf("expected one board v7, got %d boards (v%d)", n, version)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Subscribe did not exit")
	}
}
