package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T, bufferSize int) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := NewLogger(path, bufferSize, zerolog.Nop())
	require.NoError(t, err)
	return l, path
}

func TestRedact(t *testing.T) {
	t.Run("redacts sensitive keys at every depth", func(t *testing.T) {
		params := map[string]interface{}{
			"username": "alice",
			"password": "hunter2",
			"config": map[string]interface{}{
				"api_key": "sk-123",
				"region":  "us-east-1",
				"nested": map[string]interface{}{
					"TOKEN": "abc",
				},
			},
			"items": []interface{}{
				map[string]interface{}{"secret": "x", "id": 1},
				"plain",
			},
		}

		redacted := Redact(params)

		assert.Equal(t, "alice", redacted["username"])
		assert.Equal(t, "[REDACTED]", redacted["password"])

		config := redacted["config"].(map[string]interface{})
		assert.Equal(t, "[REDACTED]", config["api_key"])
		assert.Equal(t, "us-east-1", config["region"])
		assert.Equal(t, "[REDACTED]", config["nested"].(map[string]interface{})["TOKEN"])

		items := redacted["items"].([]interface{})
		assert.Equal(t, "[REDACTED]", items[0].(map[string]interface{})["secret"])
		assert.Equal(t, 1, items[0].(map[string]interface{})["id"])
		assert.Equal(t, "plain", items[1])
	})

	t.Run("does not mutate the input", func(t *testing.T) {
		params := map[string]interface{}{
			"outer": map[string]interface{}{"token": "abc"},
		}
		Redact(params)
		assert.Equal(t, "abc", params["outer"].(map[string]interface{})["token"])
	})

	t.Run("nil in nil out", func(t *testing.T) {
		assert.Nil(t, Redact(nil))
	})
}

func TestRecordAndFlush(t *testing.T) {
	t.Run("record fills id and timestamp and redacts", func(t *testing.T) {
		l, path := testLogger(t, 10)

		l.Record(Entry{
			UserID:   "u1",
			ToolName: "hr.get_employee",
			Domain:   "hr",
			Status:   "success",
			Parameters: map[string]interface{}{
				"id":       "E1",
				"password": "oops",
			},
		})

		assert.Equal(t, 1, l.Pending())
		require.NoError(t, l.Flush())
		assert.Equal(t, 0, l.Pending())

		entries := readLines(t, path)
		require.Len(t, entries, 1)
		assert.NotEmpty(t, entries[0].ID)
		assert.False(t, entries[0].Timestamp.IsZero())
		assert.Equal(t, "[REDACTED]", entries[0].Parameters["password"])
		assert.Equal(t, "E1", entries[0].Parameters["id"])
	})

	t.Run("auto-flushes when buffer fills", func(t *testing.T) {
		l, path := testLogger(t, 3)

		for i := 0; i < 3; i++ {
			l.Record(Entry{UserID: "u1", ToolName: "hr.ping", Domain: "hr", Status: "success"})
		}

		assert.Equal(t, 0, l.Pending())
		assert.Len(t, readLines(t, path), 3)
	})

	t.Run("flush on empty buffer is a no-op", func(t *testing.T) {
		l, path := testLogger(t, 10)
		require.NoError(t, l.Flush())
		require.NoError(t, l.Flush())
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("failed flush re-queues entries at the front", func(t *testing.T) {
		dir := t.TempDir()
		l, err := NewLogger(filepath.Join(dir, "missing", "audit.jsonl"), 10, zerolog.Nop())
		require.NoError(t, err)

		// Make the target path unwritable by replacing the directory
		// with a file of the same name.
		require.NoError(t, os.RemoveAll(filepath.Join(dir, "missing")))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "missing"), []byte{}, 0o644))

		l.Record(Entry{UserID: "u1", ToolName: "a.first", Domain: "a", Status: "success"})
		l.Record(Entry{UserID: "u1", ToolName: "a.second", Domain: "a", Status: "success"})

		require.Error(t, l.Flush())
		assert.Equal(t, 2, l.Pending())

		// Restore the directory; retry preserves original order.
		require.NoError(t, os.Remove(filepath.Join(dir, "missing")))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "missing"), 0o755))

		require.NoError(t, l.Flush())
		entries := readLines(t, filepath.Join(dir, "missing", "audit.jsonl"))
		require.Len(t, entries, 2)
		assert.Equal(t, "a.first", entries[0].ToolName)
		assert.Equal(t, "a.second", entries[1].ToolName)
	})
}

func TestQuery(t *testing.T) {
	l, path := testLogger(t, 100)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seed := []Entry{
		{UserID: "alice", ToolName: "hr.get_employee", Domain: "hr", Status: "success", Timestamp: base},
		{UserID: "bob", ToolName: "hr.get_employee", Domain: "hr", Status: "unauthorized", Timestamp: base.Add(time.Minute)},
		{UserID: "alice", ToolName: "devops.list_pods", Domain: "devops", Status: "success", Timestamp: base.Add(2 * time.Minute)},
		{UserID: "alice", ToolName: "devops.restart_pod", Domain: "devops", Status: "error", Timestamp: base.Add(3 * time.Minute)},
	}
	for _, e := range seed {
		l.Record(e)
	}

	t.Run("query flushes the buffer first", func(t *testing.T) {
		results, err := l.Query(Filter{})
		require.NoError(t, err)
		assert.Len(t, results, 4)
		assert.Equal(t, 0, l.Pending())
	})

	t.Run("filters combine conjunctively", func(t *testing.T) {
		results, err := l.Query(Filter{UserID: "alice", Domain: "devops"})
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, e := range results {
			assert.Equal(t, "alice", e.UserID)
			assert.Equal(t, "devops", e.Domain)
		}
	})

	t.Run("status and tool filters", func(t *testing.T) {
		results, err := l.Query(Filter{Status: "unauthorized"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "bob", results[0].UserID)

		results, err = l.Query(Filter{ToolName: "devops.restart_pod"})
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("time window filters", func(t *testing.T) {
		results, err := l.Query(Filter{Since: base.Add(90 * time.Second)})
		require.NoError(t, err)
		assert.Len(t, results, 2)

		results, err = l.Query(Filter{Until: base.Add(30 * time.Second)})
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("limit short-circuits in write order", func(t *testing.T) {
		results, err := l.Query(Filter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "hr.get_employee", results[0].ToolName)
	})

	t.Run("malformed lines are skipped", func(t *testing.T) {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString("{this is not json\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		l.Record(Entry{UserID: "carol", ToolName: "erp.get_invoice", Domain: "erp", Status: "success"})

		results, err := l.Query(Filter{})
		require.NoError(t, err)
		assert.Len(t, results, 5)
	})

	t.Run("missing file yields empty results", func(t *testing.T) {
		fresh, err := NewLogger(filepath.Join(t.TempDir(), "none.jsonl"), 10, zerolog.Nop())
		require.NoError(t, err)
		results, err := fresh.Query(Filter{})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func readLines(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())
	return entries
}
