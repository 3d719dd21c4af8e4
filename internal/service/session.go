package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/set-night/crazegpt/internal/config"
	"github.com/set-night/crazegpt/internal/domain"
	"github.com/set-night/crazegpt/internal/repository"
)

// SessionStore keeps every chat session of one history as a single JSON
// array under one key, most recently saved first.
type SessionStore struct {
	kv  repository.KV
	key string
}

func NewSessionStore(kv repository.KV, key string) *SessionStore {
	return &SessionStore{kv: kv, key: key}
}

// List returns the stored sessions. Unreadable or unparseable history is
// logged and treated as empty.
func (s *SessionStore) List(ctx context.Context) []domain.ChatSession {
	sessions, err := s.load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrStorageParse) {
			slog.Warn("chat history unreadable, starting empty", "key", s.key, "error", err)
		} else {
			slog.Error("load chat history", "key", s.key, "error", err)
		}
		return []domain.ChatSession{}
	}
	return sessions
}

// Get returns the stored session with the given ID. Backend failures are
// returned as is; unparseable history counts as empty.
func (s *SessionStore) Get(ctx context.Context, id string) (domain.ChatSession, error) {
	sessions, err := s.current(ctx)
	if err != nil {
		return domain.ChatSession{}, err
	}
	for _, session := range sessions {
		if session.ID == id {
			return session, nil
		}
	}
	return domain.ChatSession{}, domain.ErrSessionNotFound
}

// Save puts session at the front, replacing any stored session with the same
// ID, and trims the list to config.MaxSessions. A failed read aborts the save
// so the stored history is never overwritten from a partial view.
func (s *SessionStore) Save(ctx context.Context, session domain.ChatSession) error {
	existing, err := s.current(ctx)
	if err != nil {
		return err
	}

	sessions := make([]domain.ChatSession, 0, len(existing)+1)
	sessions = append(sessions, session)
	for _, other := range existing {
		if other.ID != session.ID {
			sessions = append(sessions, other)
		}
	}
	if len(sessions) > config.MaxSessions {
		sessions = sessions[:config.MaxSessions]
	}
	return s.store(ctx, sessions)
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	existing, err := s.current(ctx)
	if err != nil {
		return err
	}

	sessions := make([]domain.ChatSession, 0, len(existing))
	for _, other := range existing {
		if other.ID != id {
			sessions = append(sessions, other)
		}
	}
	return s.store(ctx, sessions)
}

// current loads the stored sessions for a read-modify-write. Only
// unparseable history is replaced by an empty list.
func (s *SessionStore) current(ctx context.Context) ([]domain.ChatSession, error) {
	sessions, err := s.load(ctx)
	if errors.Is(err, domain.ErrStorageParse) {
		slog.Warn("chat history unreadable, replacing it", "key", s.key, "error", err)
		return []domain.ChatSession{}, nil
	}
	return sessions, err
}

func (s *SessionStore) load(ctx context.Context) ([]domain.ChatSession, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.ChatSession{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	var sessions []domain.ChatSession
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageParse, err)
	}
	if sessions == nil {
		sessions = []domain.ChatSession{}
	}
	return sessions, nil
}

func (s *SessionStore) store(ctx context.Context, sessions []domain.ChatSession) error {
	payload, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(payload)); err != nil {
		return fmt.Errorf("set history: %w", err)
	}
	return nil
}

// TitleFromFirstMessage uses the first few words of text as a session title.
func TitleFromFirstMessage(text string) string {
	words := strings.Split(strings.TrimSpace(text), " ")
	if len(words) <= config.TitleWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:config.TitleWords], " ") + "..."
}
