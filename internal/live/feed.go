// Package live keeps every open view in sync with the reservation store.
// A single Hub per process watches a change Feed, reloads the full ordered
// collection whenever something changed and pushes that snapshot to all
// subscribers.
package live

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/redis/go-redis/v9"
)

// Feed signals that the reservation collection changed somewhere.
type Feed interface {
	// Publish announces a change made by this process.
	Publish(ctx context.Context) error
	// Listen yields one signal per change (signals may be coalesced) until
	// ctx is done, then closes the channel.
	Listen(ctx context.Context) (<-chan struct{}, error)
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// LocalFeed is an in-process feed. It is enough for a single instance and
// is what the tests use.
type LocalFeed struct {
	mu        sync.Mutex
	listeners map[chan struct{}]struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{listeners: make(map[chan struct{}]struct{})}
}

func (f *LocalFeed) Publish(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.listeners {
		notify(ch)
	}
	return nil
}

func (f *LocalFeed) Listen(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	f.listeners[ch] = struct{}{}
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.listeners, ch)
		close(ch)
		f.mu.Unlock()
	}()
	return ch, nil
}

// RedisFeed fans changes out to every instance through a Redis pub/sub
// channel. The publishing instance receives its own message too.
type RedisFeed struct {
	rdb     *redis.Client
	channel string
}

func NewRedisFeed(rdb *redis.Client, channel string) *RedisFeed {
	return &RedisFeed{rdb: rdb, channel: channel}
}

func (f *RedisFeed) Publish(ctx context.Context) error {
	return f.rdb.Publish(ctx, f.channel, "changed").Err()
}

func (f *RedisFeed) Listen(ctx context.Context) (<-chan struct{}, error) {
	ps := f.rdb.Subscribe(ctx, f.channel)
	// Wait for the subscription to be confirmed so that no change published
	// after Listen returns can be missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				notify(out)
			}
		}
	}()
	return out, nil
}

// FirestoreFeed turns Firestore's real-time snapshot listener into change
// signals. Writes are observed by the listener itself, so Publish is a
// no-op.
type FirestoreFeed struct {
	query firestore.Query
}

func NewFirestoreFeed(q firestore.Query) *FirestoreFeed {
	return &FirestoreFeed{query: q}
}

func (f *FirestoreFeed) Publish(context.Context) error { return nil }

func (f *FirestoreFeed) Listen(ctx context.Context) (<-chan struct{}, error) {
	it := f.query.Snapshots(ctx)
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer it.Stop()
		for {
			if _, err := it.Next(); err != nil {
				return
			}
			notify(out)
		}
	}()
	return out, nil
}
