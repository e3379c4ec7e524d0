package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	ID   int
	Name string
}

func TestQueue_New(t *testing.T) {
	q := New[testItem]()
	require.NotNil(t, q)
	assert.True(t, q.Empty())
	assert.Zero(t, q.Len())
	assert.Zero(t, q.Dropped())
}

func TestQueue_PushPop(t *testing.T) {
	q := New[testItem]()

	assert.Equal(t, testItem{}, q.Pop(), "pop on empty returns zero value")

	q.Push(testItem{ID: 1, Name: "first"})
	q.Push(testItem{ID: 2}, testItem{ID: 3})
	assert.Equal(t, 3, q.Len())

	assert.Equal(t, testItem{ID: 1, Name: "first"}, q.Pop())
	assert.Equal(t, 2, q.Pop().ID)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[testItem]()
	assert.Empty(t, q.GetAndEmpty())

	q.Push(testItem{ID: 1}, testItem{ID: 2})
	items := q.GetAndEmpty()

	assert.Equal(t, []testItem{{ID: 1}, {ID: 2}}, items)
	assert.True(t, q.Empty())

	// the returned slice must not alias the queue's new storage
	q.Push(testItem{ID: 9})
	assert.Equal(t, 1, items[0].ID)
}

func TestQueue_BoundedDropsOldest(t *testing.T) {
	q := NewBounded[int](3)

	q.Push(1, 2)
	q.Push(3, 4, 5)

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, uint64(2), q.Dropped())
	assert.Equal(t, []int{3, 4, 5}, q.GetAndEmpty())
}

func TestQueue_BoundedNonPositiveLimitIsUnbounded(t *testing.T) {
	q := NewBounded[int](0)
	for i := range 100 {
		q.Push(i)
	}
	assert.Equal(t, 100, q.Len())
	assert.Zero(t, q.Dropped())
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 500 {
				q.Push(g*1000 + i)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 4000, q.Len())
}

func TestQueue_ConcurrentPushAndDrain(t *testing.T) {
	q := NewBounded[int](10_000)
	var wg sync.WaitGroup
	total := 0
	var mu sync.Mutex

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 2000 {
			q.Push(i)
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			n := len(q.GetAndEmpty())
			mu.Lock()
			total += n
			mu.Unlock()
		}
	}()
	wg.Wait()
	total += len(q.GetAndEmpty())

	assert.Equal(t, 2000, total)
}
