package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxLength caps per-conversation history.
	DefaultMaxLength = 50
	// DefaultTTL is the idle lifetime before a conversation expires.
	DefaultTTL = 60 * time.Minute
)

// Store holds in-memory conversations with TTL expiry. Expiry is lazy
// on Get and periodic via an optional background sweep.
type Store struct {
	maxLength int
	ttl       time.Duration
	log       zerolog.Logger

	mu            sync.RWMutex
	conversations map[string]*Conversation

	sweeper *cron.Cron
}

// NewStore creates a Store. Non-positive maxLength or ttl fall back to
// the defaults.
func NewStore(maxLength int, ttl time.Duration, log zerolog.Logger) *Store {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		maxLength:     maxLength,
		ttl:           ttl,
		log:           log,
		conversations: make(map[string]*Conversation),
	}
}

// Create starts a conversation owned by userID, optionally seeded
// with a system prompt. An empty id gets a generated one. An existing
// id is overwritten.
func (s *Store) Create(id, userID, systemPrompt string) *Conversation {
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	conv := &Conversation{
		ID:         id,
		UserID:     userID,
		Messages:   []Message{},
		CreatedAt:  now,
		LastActive: now,
	}
	if systemPrompt != "" {
		conv.Messages = append(conv.Messages, Message{
			Role:      "system",
			Content:   systemPrompt,
			Timestamp: now,
		})
	}

	s.mu.Lock()
	s.conversations[id] = conv
	s.mu.Unlock()

	s.log.Debug().Str("conversation_id", id).Str("user_id", userID).Msg("Conversation created")
	return s.copyOf(conv)
}

// Get returns the conversation or nil. An idle conversation past its
// TTL is evicted here and reported absent.
func (s *Store) Get(id string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[id]
	if !exists {
		return nil
	}

	if time.Since(conv.LastActive) > s.ttl {
		delete(s.conversations, id)
		s.log.Debug().Str("conversation_id", id).Msg("Conversation expired on access")
		return nil
	}

	return s.copyOf(conv)
}

// GetOrCreate returns the live conversation, creating one for userID
// (with the system prompt) if absent or expired.
func (s *Store) GetOrCreate(id, userID, systemPrompt string) *Conversation {
	if conv := s.Get(id); conv != nil {
		return conv
	}
	return s.Create(id, userID, systemPrompt)
}

// Append adds a message to an existing conversation and prunes the
// history to the cap. Appending to an absent conversation is a silent
// no-op.
func (s *Store) Append(id string, msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[id]
	if !exists {
		return
	}

	conv.Messages = append(conv.Messages, msg)
	conv.Messages = prune(conv.Messages, s.maxLength)
	conv.LastActive = time.Now()
}

// Delete removes a conversation. Returns false if it was absent.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[id]; !exists {
		return false
	}
	delete(s.conversations, id)
	return true
}

// List returns summaries of live conversations. A non-empty userID
// restricts the listing to that owner.
func (s *Store) List(userID string) []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]Summary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		if userID != "" && conv.UserID != userID {
			continue
		}
		summaries = append(summaries, Summary{
			ID:           conv.ID,
			UserID:       conv.UserID,
			MessageCount: len(conv.Messages),
			CreatedAt:    conv.CreatedAt,
			LastActive:   conv.LastActive,
		})
	}
	return summaries
}

// Stats reports store-level counters.
func (s *Store) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totalMessages := 0
	for _, conv := range s.conversations {
		totalMessages += len(conv.Messages)
	}
	return map[string]interface{}{
		"active_conversations": len(s.conversations),
		"total_messages":       totalMessages,
		"max_length":           s.maxLength,
		"ttl_seconds":          s.ttl.Seconds(),
	}
}

// Sweep evicts every conversation past its TTL and returns the number
// removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, conv := range s.conversations {
		if now.Sub(conv.LastActive) > s.ttl {
			delete(s.conversations, id)
			removed++
		}
	}

	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("Expired conversations swept")
	}
	return removed
}

// StartSweeper schedules a periodic Sweep on the given cron spec
// (e.g. "@every 5m"). Idempotent; call StopSweeper on shutdown.
func (s *Store) StartSweeper(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sweeper != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.Sweep() }); err != nil {
		return err
	}
	c.Start()
	s.sweeper = c

	s.log.Info().Str("schedule", spec).Msg("Conversation sweeper started")
	return nil
}

// StopSweeper cancels the periodic sweep and waits for a running sweep
// to finish.
func (s *Store) StopSweeper() {
	s.mu.Lock()
	sweeper := s.sweeper
	s.sweeper = nil
	s.mu.Unlock()

	if sweeper != nil {
		<-sweeper.Stop().Done()
	}
}

// copyOf returns a defensive copy so callers cannot mutate stored
// state. Callers hold messages by value; ToolCalls slices are shared
// but treated as immutable once appended.
func (s *Store) copyOf(conv *Conversation) *Conversation {
	messages := make([]Message, len(conv.Messages))
	copy(messages, conv.Messages)
	return &Conversation{
		ID:         conv.ID,
		UserID:     conv.UserID,
		Messages:   messages,
		CreatedAt:  conv.CreatedAt,
		LastActive: conv.LastActive,
	}
}
