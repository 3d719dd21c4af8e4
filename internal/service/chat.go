package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/crazegpt/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	fileErrorReply = "I'm having trouble generating the file right now. Please try again."
	imageModel     = "image"
)

var (
	leadingFence  = regexp.MustCompile("^\\s*```[\\w+#.-]*[ \\t]*\\n?")
	trailingFence = regexp.MustCompile("\\n?```\\s*$")
)

// CostMeter accumulates provider-reported spend across every chat in the process.
type CostMeter struct {
	mu    sync.Mutex
	total decimal.Decimal
}

func (m *CostMeter) Add(cost decimal.Decimal) {
	m.mu.Lock()
	m.total = m.total.Add(cost)
	m.mu.Unlock()
}

func (m *CostMeter) Total() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

type ChatDeps struct {
	Completion *CompletionClient
	Images     *ImageService
	Files      *FileService
	Store      *SessionStore
	Catalog    *ModelCatalog
	IDs        *IDSource
	Meter      *CostMeter
}

type SendInput struct {
	Text       string
	Attachment *domain.Attachment
}

type SendResult struct {
	User  domain.ChatMessage `json:"user"`
	Reply domain.ChatMessage `json:"reply"`
}

// ChatState is a snapshot of the active conversation.
type ChatState struct {
	SessionID string               `json:"sessionId"`
	Title     string               `json:"title"`
	Messages  []domain.ChatMessage `json:"messages"`
	Model     string               `json:"model"`
	Spent     decimal.Decimal      `json:"spent"`
	Sending   bool                 `json:"sending"`
}

// ChatService runs one conversation at a time: it composes turns, routes
// them to the completion, image or file generators and persists the result.
// Only one turn may be in flight.
type ChatService struct {
	completion *CompletionClient
	images     *ImageService
	files      *FileService
	store      *SessionStore
	catalog    *ModelCatalog
	ids        *IDSource
	meter      *CostMeter
	now        func() time.Time

	mu        sync.Mutex
	sending   bool
	active    domain.ChatSession
	model     string
	deleted   map[string]struct{}
	onUpdate  func(domain.ChatSession)
	onFailure func(error)

	// storeMu orders session writes against deletions.
	storeMu sync.Mutex
}

func NewChatService(deps ChatDeps) *ChatService {
	if deps.IDs == nil {
		deps.IDs = NewIDSource()
	}
	if deps.Meter == nil {
		deps.Meter = &CostMeter{}
	}
	s := &ChatService{
		completion: deps.Completion,
		images:     deps.Images,
		files:      deps.Files,
		store:      deps.Store,
		catalog:    deps.Catalog,
		ids:        deps.IDs,
		meter:      deps.Meter,
		now:        time.Now,
		model:      deps.Completion.Provider().Model(),
		deleted:    make(map[string]struct{}),
	}
	s.active = s.newSession()
	return s
}

// OnSessionUpdate registers fn to be called after every persisted change.
func (s *ChatService) OnSessionUpdate(fn func(domain.ChatSession)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// OnFailure registers fn to be called with every error that was turned into
// a transcript message.
func (s *ChatService) OnFailure(fn func(error)) {
	s.mu.Lock()
	s.onFailure = fn
	s.mu.Unlock()
}

func (s *ChatService) reportFailure(err error) {
	s.mu.Lock()
	fn := s.onFailure
	s.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (s *ChatService) newSession() domain.ChatSession {
	now := s.now().UTC()
	return domain.ChatSession{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Messages:  []domain.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *ChatService) newMessage(text string, sender domain.Sender) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        s.ids.Next(),
		Text:      text,
		Sender:    sender,
		Timestamp: s.now().UTC(),
	}
}

// Send appends the user turn and the reply to the active session. Provider
// failures become an AI message in the transcript, not an error.
func (s *ChatService) Send(ctx context.Context, in SendInput) (SendResult, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" && in.Attachment == nil {
		return SendResult{}, domain.ErrEmptyMessage
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return SendResult{}, domain.ErrActiveRequest
	}
	s.sending = true

	userMsg := s.newMessage(text, domain.SenderUser)
	if a := in.Attachment; a != nil {
		if a.IsImage {
			userMsg.ImageURL = a.URL
		} else {
			userMsg.FileURL = a.URL
			userMsg.FileName = a.Name
		}
	}

	session := s.active
	if len(session.Messages) == 0 {
		title := text
		if title == "" && in.Attachment != nil {
			title = in.Attachment.Name
		}
		session.Title = TitleFromFirstMessage(title)
	}
	history := append([]domain.ChatMessage(nil), session.Messages...)
	session.Messages = append(history[:len(history):len(history)], userMsg)
	s.active = session
	model := s.model
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	reply := s.reply(ctx, promptText(text, in.Attachment), history, model)

	s.mu.Lock()
	if s.active.ID == session.ID {
		session = s.active
	}
	session.Messages = append(append([]domain.ChatMessage(nil), session.Messages...), reply)
	session.UpdatedAt = reply.Timestamp
	if s.active.ID == session.ID {
		s.active = session
	}
	s.mu.Unlock()

	s.persist(ctx, session)
	return SendResult{User: userMsg, Reply: reply}, nil
}

func promptText(text string, a *domain.Attachment) string {
	if a == nil {
		return text
	}
	note := fmt.Sprintf("[User attached a file: %s]", a.Name)
	if a.IsImage {
		note = fmt.Sprintf("[User attached an image: %s]", a.Name)
	}
	if text == "" {
		return note
	}
	return text + "\n" + note
}

func (s *ChatService) reply(ctx context.Context, text string, history []domain.ChatMessage, model string) domain.ChatMessage {
	if Intent(text) {
		return s.fileReply(ctx, text, history, model)
	}
	if prompt, ok := ImageIntent(text); ok && s.images != nil {
		return s.imageReply(ctx, prompt)
	}

	completion, err := s.completion.SendMessage(ctx, text, history, WithModel(model))
	if err != nil {
		slog.Error("chat completion", "session", s.activeID(), "error", err)
		s.reportFailure(err)
		return s.newMessage(UserMessage(err), domain.SenderAI)
	}
	s.meter.Add(completion.Usage.Cost)

	msg := s.newMessage(completion.Content, domain.SenderAI)
	msg.Model = completion.Model
	return msg
}

func (s *ChatService) fileReply(ctx context.Context, text string, history []domain.ChatMessage, model string) domain.ChatMessage {
	fileType := InferType(text)
	request := fmt.Sprintf("Generate only the raw content for a %s file based on this request: %s\n"+
		"Do not include explanations, markdown formatting or code fences. Return only the file content.", fileType, text)

	completion, err := s.completion.SendMessage(ctx, request, history, WithModel(model))
	if err != nil {
		slog.Error("file content completion", "type", fileType, "error", err)
		s.reportFailure(err)
		return s.newMessage(fileErrorReply, domain.SenderAI)
	}
	s.meter.Add(completion.Usage.Cost)

	file, err := s.files.Generate(fileType, StripCodeFences(completion.Content), "")
	if err != nil {
		slog.Error("generate file", "type", fileType, "error", err)
		s.reportFailure(err)
		return s.newMessage(fileErrorReply, domain.SenderAI)
	}

	msg := s.newMessage(fmt.Sprintf("I've created a **%s** file for you: %s", strings.ToUpper(fileType), file.Filename), domain.SenderAI)
	msg.FileURL = file.URL
	msg.FileName = file.Filename
	msg.Model = completion.Model
	return msg
}

func (s *ChatService) imageReply(ctx context.Context, prompt string) domain.ChatMessage {
	img, err := s.images.Generate(ctx, prompt, 0, 0)
	if err != nil {
		slog.Error("generate image", "prompt", prompt, "error", err)
		s.reportFailure(err)
		return s.newMessage(UserMessage(err), domain.SenderAI)
	}
	msg := s.newMessage(fmt.Sprintf("Here is an image for: *%s*", prompt), domain.SenderAI)
	msg.ImageURL = img.URL
	msg.Model = imageModel
	return msg
}

// StripCodeFences removes one surrounding ``` fence pair from generated content.
func StripCodeFences(content string) string {
	out := leadingFence.ReplaceAllString(content, "")
	out = trailingFence.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// Edit replaces the text of a user message in the active session.
func (s *ChatService) Edit(ctx context.Context, id int64, text string) (domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, domain.ErrEmptyMessage
	}

	s.mu.Lock()
	idx := -1
	for i, m := range s.active.Messages {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return domain.ChatMessage{}, domain.ErrMessageNotFound
	}
	if s.active.Messages[idx].Sender != domain.SenderUser {
		s.mu.Unlock()
		return domain.ChatMessage{}, domain.ErrNotEditable
	}

	session := s.active
	session.Messages = append([]domain.ChatMessage(nil), s.active.Messages...)
	session.Messages[idx].Text = text
	session.Messages[idx].Timestamp = s.now().UTC()
	session.UpdatedAt = session.Messages[idx].Timestamp
	edited := session.Messages[idx]
	s.active = session
	s.mu.Unlock()

	s.persist(ctx, session)
	return edited, nil
}

// persist saves session and notifies the host. A session deleted while its
// turn was in flight is not written back.
func (s *ChatService) persist(ctx context.Context, session domain.ChatSession) {
	s.storeMu.Lock()
	s.mu.Lock()
	_, gone := s.deleted[session.ID]
	fn := s.onUpdate
	s.mu.Unlock()
	if gone {
		s.storeMu.Unlock()
		slog.Info("session deleted during turn, not saving", "session", session.ID)
		return
	}
	if err := s.store.Save(ctx, session); err != nil {
		slog.Error("save session", "session", session.ID, "error", err)
	}
	s.storeMu.Unlock()

	if fn != nil {
		fn(session)
	}
}

// SelectSession makes a stored session active. An empty id starts a new
// conversation.
func (s *ChatService) SelectSession(ctx context.Context, id string) (domain.ChatSession, error) {
	if id == "" {
		return s.NewSession(), nil
	}
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.ChatSession{}, err
	}
	if session.Messages == nil {
		session.Messages = []domain.ChatMessage{}
	}

	s.mu.Lock()
	s.active = session
	s.mu.Unlock()
	return session, nil
}

// NewSession starts a fresh, unsaved conversation.
func (s *ChatService) NewSession() domain.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = s.newSession()
	return s.active
}

// DeleteSession removes a stored session. Deleting the active one replaces
// it with a fresh conversation.
func (s *ChatService) DeleteSession(ctx context.Context, id string) error {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.mu.Lock()
	s.deleted[id] = struct{}{}
	if s.active.ID == id {
		s.active = s.newSession()
	}
	s.mu.Unlock()
	return nil
}

func (s *ChatService) Sessions(ctx context.Context) []domain.ChatSession {
	return s.store.List(ctx)
}

func (s *ChatService) Models(ctx context.Context) []domain.AIModel {
	return s.catalog.List(ctx)
}

func (s *ChatService) SetModel(ctx context.Context, id string) error {
	if _, err := s.catalog.Get(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.model = id
	s.mu.Unlock()
	slog.Info("model switched", "model", id)
	return nil
}

func (s *ChatService) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

func (s *ChatService) Spent() decimal.Decimal {
	return s.meter.Total()
}

func (s *ChatService) Active() domain.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.active
	session.Messages = append([]domain.ChatMessage{}, s.active.Messages...)
	return session
}

func (s *ChatService) State() ChatState {
	active := s.Active()
	s.mu.Lock()
	sending, model := s.sending, s.model
	s.mu.Unlock()
	return ChatState{
		SessionID: active.ID,
		Title:     active.Title,
		Messages:  active.Messages,
		Model:     model,
		Spent:     s.Spent(),
		Sending:   sending,
	}
}

func (s *ChatService) activeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.ID
}
