package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ray/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ray/internal/core/domain"
)

func exchange(i int) (domain.Turn, domain.Turn) {
	at := time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC)
	return domain.Turn{Role: domain.RoleUser, Text: fmt.Sprintf("q%d", i), Timestamp: at},
		domain.Turn{Role: domain.RoleAssistant, Text: fmt.Sprintf("a%d", i), Timestamp: at.Add(time.Millisecond)}
}

func TestConversationMemory_WindowIsBounded(t *testing.T) {
	store := memory.NewTurnStore()
	mem := NewConversationMemory(store, 5)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		u, a := exchange(i)
		require.NoError(t, mem.SaveExchange(ctx, "s1", u, a))
	}

	window, err := mem.Window(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, window, 10)
	assert.Equal(t, "q5", window[0].Text)
	assert.Equal(t, "a9", window[9].Text)

	// Full history is retained.
	history, err := mem.History(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 20)
}

func TestConversationMemory_DefaultWindow(t *testing.T) {
	mem := NewConversationMemory(memory.NewTurnStore(), 0)
	assert.Equal(t, domain.DefaultMemoryWindow, mem.window)
}

func TestConversationMemory_Save(t *testing.T) {
	mem := NewConversationMemory(memory.NewTurnStore(), 2)
	ctx := context.Background()

	u, _ := exchange(1)
	require.NoError(t, mem.Save(ctx, "s1", u))

	window, err := mem.Window(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "q1", window[0].Text)
}

func TestConversationMemory_RejectsEmptySession(t *testing.T) {
	mem := NewConversationMemory(memory.NewTurnStore(), 2)
	u, a := exchange(1)

	err := mem.SaveExchange(context.Background(), "", u, a)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConversationMemory_StoreErrors(t *testing.T) {
	boom := errors.New("disk full")
	store := &mockTurnStore{TurnStore: memory.NewTurnStore(), appendErr: boom, recentErr: boom}
	mem := NewConversationMemory(store, 2)
	ctx := context.Background()

	u, a := exchange(1)
	assert.ErrorIs(t, mem.SaveExchange(ctx, "s1", u, a), boom)

	_, err := mem.Window(ctx, "s1")
	assert.ErrorIs(t, err, boom)
}

func TestConversationMemory_SessionsAndDelete(t *testing.T) {
	mem := NewConversationMemory(memory.NewTurnStore(), 2)
	ctx := context.Background()

	u, a := exchange(1)
	require.NoError(t, mem.SaveExchange(ctx, "s1", u, a))
	u, a = exchange(2)
	require.NoError(t, mem.SaveExchange(ctx, "s2", u, a))

	sessions, err := mem.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s2", sessions[0].ID)

	require.NoError(t, mem.Delete(ctx, "s1"))
	assert.ErrorIs(t, mem.Delete(ctx, "s1"), domain.ErrNotFound)

	sessions, err = mem.Sessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestConversationMemory_ConcurrentExchangesStayPaired(t *testing.T) {
	mem := NewConversationMemory(memory.NewTurnStore(), 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, a := exchange(i)
			assert.NoError(t, mem.SaveExchange(ctx, "shared", u, a))
		}(i)
	}
	wg.Wait()

	history, err := mem.History(ctx, "shared")
	require.NoError(t, err)
	require.Len(t, history, 40)
	assert.Zero(t, lockCount(mem))
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, domain.RoleUser, history[i].Role)
		assert.Equal(t, domain.RoleAssistant, history[i+1].Role)
		assert.Equal(t, "a"+history[i].Text[1:], history[i+1].Text)
	}
}

func lockCount(m *ConversationMemory) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func TestConversationMemory_SessionLocksAreReleased(t *testing.T) {
	mem := NewConversationMemory(memory.NewTurnStore(), 5)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		u, a := exchange(i)
		require.NoError(t, mem.SaveExchange(ctx, fmt.Sprintf("session-%d", i), u, a))
	}
	assert.Zero(t, lockCount(mem))

	require.NoError(t, mem.Delete(ctx, "session-7"))
	assert.ErrorIs(t, mem.Delete(ctx, "session-7"), domain.ErrNotFound)
	assert.Zero(t, lockCount(mem))

	// A held lock is tracked until released.
	release := mem.lock("busy")
	assert.Equal(t, 1, lockCount(mem))
	release()
	assert.Zero(t, lockCount(mem))
}
