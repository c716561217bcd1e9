package conversation

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateAndGet(t *testing.T) {
	t.Run("create seeds a system message", func(t *testing.T) {
		store := NewStore(50, time.Hour, zerolog.Nop())
		conv := store.Create("c1", "u1", "You are a helpful assistant.")

		require.Len(t, conv.Messages, 1)
		assert.Equal(t, "system", conv.Messages[0].Role)
		assert.Equal(t, "You are a helpful assistant.", conv.Messages[0].Content)
	})

	t.Run("create records the owner", func(t *testing.T) {
		store := NewStore(50, time.Hour, zerolog.Nop())
		store.Create("c1", "alice", "")

		conv := store.Get("c1")
		require.NotNil(t, conv)
		assert.Equal(t, "alice", conv.UserID)
	})

	t.Run("create without prompt starts empty", func(t *testing.T) {
		store := NewStore(50, time.Hour, zerolog.Nop())
		conv := store.Create("c1", "u1", "")
		assert.Empty(t, conv.Messages)
	})

	t.Run("empty id gets generated", func(t *testing.T) {
		store := NewStore(50, time.Hour, zerolog.Nop())
		conv := store.Create("", "u1", "")
		assert.NotEmpty(t, conv.ID)
		assert.NotNil(t, store.Get(conv.ID))
	})

	t.Run("get absent returns nil", func(t *testing.T) {
		store := NewStore(50, time.Hour, zerolog.Nop())
		assert.Nil(t, store.Get("nope"))
	})

	t.Run("get returns a copy", func(t *testing.T) {
		store := NewStore(50, time.Hour, zerolog.Nop())
		store.Create("c1", "u1", "seed")

		conv := store.Get("c1")
		conv.Messages[0].Content = "mutated"

		assert.Equal(t, "seed", store.Get("c1").Messages[0].Content)
	})
}

func TestStoreTTL(t *testing.T) {
	t.Run("idle conversation expires lazily on get", func(t *testing.T) {
		store := NewStore(50, 30*time.Millisecond, zerolog.Nop())
		store.Create("c1", "u1", "")

		require.NotNil(t, store.Get("c1"))
		time.Sleep(50 * time.Millisecond)
		assert.Nil(t, store.Get("c1"))

		// Eviction happened, not just masking.
		assert.False(t, store.Delete("c1"))
	})

	t.Run("append refreshes activity", func(t *testing.T) {
		store := NewStore(50, 60*time.Millisecond, zerolog.Nop())
		store.Create("c1", "u1", "")

		time.Sleep(40 * time.Millisecond)
		store.Append("c1", Message{Role: "user", Content: "hi"})
		time.Sleep(40 * time.Millisecond)

		assert.NotNil(t, store.Get("c1"))
	})

	t.Run("sweep evicts expired conversations", func(t *testing.T) {
		store := NewStore(50, 20*time.Millisecond, zerolog.Nop())
		store.Create("old", "u1", "")
		time.Sleep(40 * time.Millisecond)
		store.Create("fresh", "u1", "")

		removed := store.Sweep()
		assert.Equal(t, 1, removed)
		assert.Nil(t, store.Get("old"))
		assert.NotNil(t, store.Get("fresh"))
	})

	t.Run("get or create revives expired conversation", func(t *testing.T) {
		store := NewStore(50, 20*time.Millisecond, zerolog.Nop())
		store.Create("c1", "u1", "old prompt")
		store.Append("c1", Message{Role: "user", Content: "hello"})
		time.Sleep(40 * time.Millisecond)

		conv := store.GetOrCreate("c1", "u1", "new prompt")
		require.Len(t, conv.Messages, 1)
		assert.Equal(t, "new prompt", conv.Messages[0].Content)
	})
}

func TestStoreAppendAndPrune(t *testing.T) {
	t.Run("append to absent conversation is silent", func(t *testing.T) {
		store := NewStore(50, time.Hour, zerolog.Nop())
		store.Append("nope", Message{Role: "user", Content: "hi"})
		assert.Nil(t, store.Get("nope"))
	})

	t.Run("prune keeps system messages plus most recent others", func(t *testing.T) {
		store := NewStore(5, time.Hour, zerolog.Nop())
		store.Create("c1", "u1", "system prompt")

		for i := 0; i < 10; i++ {
			store.Append("c1", Message{Role: "user", Content: fmt.Sprintf("msg-%d", i)})
		}

		conv := store.Get("c1")
		require.Len(t, conv.Messages, 5)
		assert.Equal(t, "system", conv.Messages[0].Role)
		assert.Equal(t, "msg-6", conv.Messages[1].Content)
		assert.Equal(t, "msg-9", conv.Messages[4].Content)
	})

	t.Run("prune preserves relative order without system message", func(t *testing.T) {
		store := NewStore(3, time.Hour, zerolog.Nop())
		store.Create("c1", "u1", "")

		for i := 0; i < 6; i++ {
			store.Append("c1", Message{Role: "user", Content: fmt.Sprintf("msg-%d", i)})
		}

		conv := store.Get("c1")
		require.Len(t, conv.Messages, 3)
		assert.Equal(t, "msg-3", conv.Messages[0].Content)
		assert.Equal(t, "msg-5", conv.Messages[2].Content)
	})
}

func TestStoreListAndStats(t *testing.T) {
	store := NewStore(50, time.Hour, zerolog.Nop())
	store.Create("c1", "u1", "prompt")
	store.Create("c2", "u2", "")
	store.Append("c1", Message{Role: "user", Content: "hi"})

	summaries := store.List("")
	assert.Len(t, summaries, 2)

	t.Run("summaries carry the owner", func(t *testing.T) {
		owners := map[string]string{}
		for _, s := range summaries {
			owners[s.ID] = s.UserID
		}
		assert.Equal(t, "u1", owners["c1"])
		assert.Equal(t, "u2", owners["c2"])
	})

	t.Run("list filters by owner", func(t *testing.T) {
		mine := store.List("u2")
		require.Len(t, mine, 1)
		assert.Equal(t, "c2", mine[0].ID)
	})

	stats := store.Stats()
	assert.Equal(t, 2, stats["active_conversations"])
	assert.Equal(t, 3, stats["total_messages"])
}

func TestStoreSweeper(t *testing.T) {
	store := NewStore(50, time.Hour, zerolog.Nop())

	require.NoError(t, store.StartSweeper("@every 1h"))
	// Starting twice is a no-op.
	require.NoError(t, store.StartSweeper("@every 1h"))
	store.StopSweeper()
	// Stopping twice is safe.
	store.StopSweeper()

	assert.Error(t, NewStore(50, time.Hour, zerolog.Nop()).StartSweeper("not a spec"))
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(50, time.Hour, zerolog.Nop())
	store.Create("c1", "u1", "")

	assert.True(t, store.Delete("c1"))
	assert.False(t, store.Delete("c1"))
}
