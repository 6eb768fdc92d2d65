package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xiaot623/gogo/relay/domain"
)

func TestGetUnknownKey(t *testing.T) {
	s := New()
	got := s.Get("nope")
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty history, got %v", got)
	}
}

func TestGetIsIdempotent(t *testing.T) {
	s := New()
	s.Append("k", domain.NewTextMessage(domain.RoleUser, "hello"))

	first := s.Get("k")
	second := s.Get("k")
	assert.Equal(t, first, second)
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	s.Append("k", domain.NewTextMessage(domain.RoleUser, "hello"))

	got := s.Get("k")
	got[0] = domain.NewTextMessage(domain.RoleUser, "mutated")

	assert.Equal(t, "hello", s.Get("k")[0].Text())
}

func TestTTLExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	s := New(WithTTL(10*time.Second), WithClock(clock))

	s.Append("k", domain.NewTextMessage(domain.RoleUser, "hi"))
	assert.Len(t, s.Get("k"), 1)

	now = now.Add(11 * time.Second)
	assert.Empty(t, s.Get("k"))
	assert.False(t, s.Has("k"), "expired record should be absent after the read")
}

func TestAppendRefreshesTimestamp(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	s := New(WithTTL(10*time.Second), WithClock(clock))

	s.Append("k", domain.NewTextMessage(domain.RoleUser, "one"))
	now = now.Add(8 * time.Second)
	s.Append("k", domain.NewTextMessage(domain.RoleAssistant, "two"))
	now = now.Add(8 * time.Second)

	// 16s since creation but only 8s since the last touch.
	assert.Len(t, s.Get("k"), 2)
}

func TestWindowBound(t *testing.T) {
	const maxRounds = 3
	s := New(WithMaxRounds(maxRounds))

	total := 2*maxRounds + 4
	for i := 0; i < total; i++ {
		s.Append("k", domain.NewTextMessage(domain.RoleUser, fmt.Sprintf("m%d", i)))
	}

	got := s.Get("k")
	assert.Len(t, got, 2*maxRounds)
	// Most recent messages, original relative order.
	for i, msg := range got {
		assert.Equal(t, fmt.Sprintf("m%d", total-2*maxRounds+i), msg.Text())
	}
}

func TestSetTrimsAndReplaces(t *testing.T) {
	const maxRounds = 2
	s := New(WithMaxRounds(maxRounds))
	s.Append("k", domain.NewTextMessage(domain.RoleUser, "old"))

	var msgs []domain.Message
	for i := 0; i < 7; i++ {
		msgs = append(msgs, domain.NewTextMessage(domain.RoleUser, fmt.Sprintf("n%d", i)))
	}
	s.Set("k", msgs)

	got := s.Get("k")
	assert.Len(t, got, 4)
	assert.Equal(t, "n3", got[0].Text())
	assert.Equal(t, "n6", got[3].Text())
}

func TestConcurrentAppendsAcrossKeys(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		key := fmt.Sprintf("k%d", i%4)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Append(key, domain.NewTextMessage(domain.RoleUser, "x"))
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		assert.Len(t, s.Get(fmt.Sprintf("k%d", i)), 2*DefaultMaxRounds)
	}
}
