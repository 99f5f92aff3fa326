package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeList struct {
	mu       sync.Mutex
	items    map[string][]string
	trims    [][2]int64
	ranges   [][2]int64
	rangeErr error
	execErr  error
}

func newFakeList() *fakeList {
	return &fakeList{items: make(map[string][]string)}
}

func (f *fakeList) TxPipeline() redis.Pipeliner {
	return &fakePipeline{list: f}
}

func (f *fakeList) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, [2]int64{start, stop})
	if f.rangeErr != nil {
		return redis.NewStringSliceResult(nil, f.rangeErr)
	}
	items := f.items[key]
	end := int(stop) + 1
	if end > len(items) {
		end = len(items)
	}
	return redis.NewStringSliceResult(append([]string(nil), items[start:end]...), nil)
}

func (f *fakeList) stored(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.items[key]...)
}

// fakePipeline queues LPUSH and LTRIM and applies them on Exec.
type fakePipeline struct {
	redis.Pipeliner
	list *fakeList
	ops  []func()
}

func (p *fakePipeline) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	p.ops = append(p.ops, func() {
		for _, v := range values {
			p.list.items[key] = append([]string{string(v.([]byte))}, p.list.items[key]...)
		}
	})
	return redis.NewIntCmd(ctx)
}

func (p *fakePipeline) LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd {
	p.ops = append(p.ops, func() {
		p.list.trims = append(p.list.trims, [2]int64{start, stop})
		items := p.list.items[key]
		if int(stop)+1 < len(items) {
			p.list.items[key] = items[start : stop+1]
		}
	})
	return redis.NewStatusCmd(ctx)
}

func (p *fakePipeline) Exec(context.Context) ([]redis.Cmder, error) {
	p.list.mu.Lock()
	defer p.list.mu.Unlock()
	if p.list.execErr != nil {
		return nil, p.list.execErr
	}
	for _, op := range p.ops {
		op()
	}
	p.ops = nil
	return nil, nil
}

func TestRedisJournalKeyIncludesKioskID(t *testing.T) {
	assert.Equal(t, "kiosk:activity:hall-2", NewRedis(newFakeList(), "hall-2", 5, zap.NewNop()).key)
	assert.Equal(t, "kiosk:activity", NewRedis(newFakeList(), "", 5, zap.NewNop()).key)
}

func TestRedisJournalWriteTrimsToCapacity(t *testing.T) {
	list := newFakeList()
	j := NewRedis(list, "k1", 3, zap.NewNop())
	ctx := context.Background()

	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, j.write(ctx, stamp(Entry{Kind: KindPurchaseSettled, Message: msg})))
	}

	assert.Len(t, list.stored(j.key), 3)
	assert.Equal(t, [2]int64{0, 2}, list.trims[len(list.trims)-1])

	entries, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "e", entries[0].Message)
	assert.Equal(t, "c", entries[2].Message)
	assert.NotEmpty(t, entries[0].ID)
}

func TestRedisJournalRecentClampsLimit(t *testing.T) {
	list := newFakeList()
	j := NewRedis(list, "k1", 4, zap.NewNop())
	ctx := context.Background()

	for _, limit := range []int{0, -1, 2, 100} {
		_, err := j.Recent(ctx, limit)
		require.NoError(t, err)
	}
	assert.Equal(t, [][2]int64{{0, 3}, {0, 3}, {0, 1}, {0, 3}}, list.ranges)
}

func TestRedisJournalRecentTreatsMissingKeyAsEmpty(t *testing.T) {
	list := newFakeList()
	list.rangeErr = redis.Nil
	j := NewRedis(list, "k1", 4, zap.NewNop())

	entries, err := j.Recent(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, entries)

	list.rangeErr = errors.New("connection refused")
	_, err = j.Recent(context.Background(), 2)
	require.Error(t, err)
}

func TestRedisJournalRecentSkipsMalformedEntries(t *testing.T) {
	list := newFakeList()
	j := NewRedis(list, "k1", 4, zap.NewNop())
	list.items[j.key] = []string{`{"kind":"cancelled","message":"ok"}`, `not json`}

	entries, err := j.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ok", entries[0].Message)
}

func TestRedisJournalRunDrainsQueue(t *testing.T) {
	list := newFakeList()
	j := NewRedis(list, "k1", 4, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	j.Record(Entry{Kind: KindCardDetected, Message: "card in"})
	require.Eventually(t, func() bool { return len(list.stored(j.key)) == 1 }, time.Second, 10*time.Millisecond)
}
