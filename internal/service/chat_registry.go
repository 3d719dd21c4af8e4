package service

import (
	"fmt"
	"sync"

	"github.com/set-night/crazegpt/internal/domain"
	"github.com/set-night/crazegpt/internal/repository"
	"github.com/shopspring/decimal"
)

// ChatRegistry lazily creates one ChatService per Telegram chat, each with
// its own history key in the shared store.
type ChatRegistry struct {
	mu    sync.Mutex
	chats map[int64]*ChatService
	kv    repository.KV
	key   string
	deps  ChatDeps

	onUpdate  func(chatID int64, session domain.ChatSession)
	onFailure func(chatID int64, err error)
}

// NewChatRegistry uses deps for every chat; deps.Store is replaced per chat.
func NewChatRegistry(kv repository.KV, keyPrefix string, deps ChatDeps) *ChatRegistry {
	if deps.IDs == nil {
		deps.IDs = NewIDSource()
	}
	if deps.Meter == nil {
		deps.Meter = &CostMeter{}
	}
	return &ChatRegistry{
		chats: make(map[int64]*ChatService),
		kv:    kv,
		key:   keyPrefix,
		deps:  deps,
	}
}

// OnSessionUpdate registers fn for chats created after the call.
func (r *ChatRegistry) OnSessionUpdate(fn func(chatID int64, session domain.ChatSession)) {
	r.mu.Lock()
	r.onUpdate = fn
	r.mu.Unlock()
}

// OnFailure registers fn for chats created after the call.
func (r *ChatRegistry) OnFailure(fn func(chatID int64, err error)) {
	r.mu.Lock()
	r.onFailure = fn
	r.mu.Unlock()
}

func (r *ChatRegistry) ForChat(chatID int64) *ChatService {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.chats[chatID]; ok {
		return c
	}

	deps := r.deps
	deps.Store = NewSessionStore(r.kv, fmt.Sprintf("%s:%d", r.key, chatID))
	c := NewChatService(deps)
	if fn := r.onUpdate; fn != nil {
		c.OnSessionUpdate(func(s domain.ChatSession) { fn(chatID, s) })
	}
	if fn := r.onFailure; fn != nil {
		c.OnFailure(func(err error) { fn(chatID, err) })
	}
	r.chats[chatID] = c
	return c
}

func (r *ChatRegistry) Spent() decimal.Decimal {
	return r.deps.Meter.Total()
}
