package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Filter narrows a Query. Zero-valued fields match everything;
// populated fields combine conjunctively.
type Filter struct {
	UserID   string
	ToolName string
	Domain   string
	Status   string
	Since    time.Time
	Until    time.Time
	Limit    int
}

func (f Filter) matches(entry Entry) bool {
	if f.UserID != "" && entry.UserID != f.UserID {
		return false
	}
	if f.ToolName != "" && entry.ToolName != f.ToolName {
		return false
	}
	if f.Domain != "" && entry.Domain != f.Domain {
		return false
	}
	if f.Status != "" && entry.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && entry.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && entry.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// Query flushes the buffer and scans the JSONL trail in write order.
// Malformed lines are skipped, not fatal. When Limit is positive the
// scan stops as soon as it is reached.
func (l *Logger) Query(filter Filter) ([]Entry, error) {
	if err := l.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush before query: %w", err)
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	defer f.Close()

	results := []Entry{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			l.log.Warn().Err(err).Msg("Skipping malformed audit line")
			continue
		}

		if !filter.matches(entry) {
			continue
		}

		results = append(results, entry)
		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan audit file: %w", err)
	}

	return results, nil
}
