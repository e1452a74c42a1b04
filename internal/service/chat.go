package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/ai"
	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/auth"
	"github.com/lalith-99/chatelio/internal/config"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
	"github.com/lalith-99/chatelio/internal/vectorstore"
	"go.uber.org/zap"
)

const (
	defaultChatTitle    = "New Chat"
	detailChatNotFound  = "Chat not found or access denied"
	detailProviderError = "Failed to generate a response"
)

type EventType string

const (
	EventStart EventType = "start"
	EventChunk EventType = "chunk"
	EventEnd   EventType = "end"
	EventError EventType = "error"
)

// Event is one frame of a streamed reply. A turn emits start, then zero or
// more chunks, then exactly one of end or error.
type Event struct {
	Type        EventType `json:"type"`
	ChatID      string    `json:"chat_id,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	AccessToken string    `json:"access_token,omitempty"`
	MessageID   int64     `json:"message_id,omitempty"`
	Content     string    `json:"content,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

type TurnState string

const (
	TurnReceived   TurnState = "received"
	TurnRetrieving TurnState = "retrieving"
	TurnGenerating TurnState = "generating"
	TurnPersisting TurnState = "persisting"
	TurnCompleted  TurnState = "completed"
	TurnFailed     TurnState = "failed"
)

// Turn is one in-flight request/reply exchange. Events is closed once the
// turn reaches a terminal state.
type Turn struct {
	ChatID uuid.UUID

	events chan Event
	done   chan struct{}
	cancel context.CancelFunc

	mu    sync.Mutex
	state TurnState
}

func (t *Turn) Events() <-chan Event { return t.events }

// Cancel stops the turn. Unread chunks are dropped and the partial reply
// policy decides what gets persisted.
func (t *Turn) Cancel() { t.cancel() }

// Wait blocks until the producer has finished, including persistence.
func (t *Turn) Wait() { <-t.done }

func (t *Turn) State() TurnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Turn) setState(s TurnState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// emit blocks until the consumer takes the event or the turn is cancelled.
func (t *Turn) emit(ctx context.Context, ev Event) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case t.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Retriever is the slice of KnowledgeService the orchestrator needs.
type Retriever interface {
	Retrieve(ctx context.Context, companyID uuid.UUID, query string, k int) ([]vectorstore.Snippet, error)
}

type ChatConfig struct {
	RetrievalK         int
	HistoryWindow      int
	PartialReplyPolicy string
}

type ChatService struct {
	chats     repository.ChatRepository
	messages  repository.MessageRepository
	companies repository.CompanyRepository
	retriever Retriever
	models    *ai.Registry
	cfg       ChatConfig
	logger    *zap.Logger
}

func NewChatService(
	chats repository.ChatRepository,
	messages repository.MessageRepository,
	companies repository.CompanyRepository,
	retriever Retriever,
	models *ai.Registry,
	cfg ChatConfig,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		chats:     chats,
		messages:  messages,
		companies: companies,
		retriever: retriever,
		models:    models,
		cfg:       cfg,
		logger:    logger,
	}
}

type SendInput struct {
	// ChatID continues an existing chat; nil starts a new one.
	ChatID  *uuid.UUID
	Title   string
	Message string
	Model   string

	// Extra fields for the start event, set by the public router.
	startSessionID   string
	startAccessToken string
}

// Send validates the request, resolves or creates the chat, stores the
// human message and starts streaming the reply. Validation and ownership
// failures are returned before any provider is contacted; failures after
// that point arrive as an error event.
func (s *ChatService) Send(ctx context.Context, p auth.Principal, in SendInput) (*Turn, error) {
	if err := RequireChatter(p); err != nil {
		return nil, err
	}
	prompt, gen, err := s.checkInput(in.Message, in.Model)
	if err != nil {
		return nil, err
	}

	var chat *models.Chat
	if in.ChatID != nil {
		chat, err = s.ownedChat(ctx, p, *in.ChatID)
		if err != nil {
			return nil, err
		}
	} else {
		title := strings.TrimSpace(in.Title)
		if title == "" {
			title = defaultChatTitle
		}
		chat, err = s.chats.Create(ctx, p.CompanyID, p.Owner(), title)
		if err != nil {
			return nil, apperr.Internal("create chat", err)
		}
	}

	history, err := s.messages.Recent(ctx, chat.ID, s.cfg.HistoryWindow)
	if err != nil {
		return nil, apperr.Internal("load history", err)
	}
	if _, err := s.messages.Append(ctx, chat.ID, models.RoleHuman, prompt, false); err != nil {
		return nil, apperr.Internal("save message", err)
	}

	assistant := ""
	if c, err := s.companies.GetByID(ctx, p.CompanyID); err == nil && c != nil {
		assistant = c.ChatbotTitle
		if assistant == "" {
			assistant = c.Name
		}
	}

	turnCtx, cancel := context.WithCancel(ctx)
	turn := &Turn{
		ChatID: chat.ID,
		events: make(chan Event),
		done:   make(chan struct{}),
		cancel: cancel,
		state:  TurnReceived,
	}
	start := Event{
		Type:        EventStart,
		ChatID:      chat.ID.String(),
		SessionID:   in.startSessionID,
		AccessToken: in.startAccessToken,
	}
	go s.produce(turnCtx, turn, p, start, gen, ai.Request{
		History: history,
		Prompt:  prompt,
	}, assistant)
	return turn, nil
}

// checkInput validates the prompt and resolves the model without touching
// storage or the provider.
func (s *ChatService) checkInput(message, model string) (string, ai.Generator, error) {
	prompt := strings.TrimSpace(message)
	if prompt == "" {
		return "", nil, apperr.Validation("Message cannot be empty")
	}
	gen, err := s.models.Resolve(model)
	if err != nil {
		return "", nil, apperr.Validation(err.Error())
	}
	return prompt, gen, nil
}

func (s *ChatService) produce(ctx context.Context, turn *Turn, p auth.Principal, start Event, gen ai.Generator, req ai.Request, assistant string) {
	defer close(turn.done)
	defer close(turn.events)
	defer turn.cancel()

	log := s.logger.With(
		zap.String("company_id", p.CompanyID.String()),
		zap.String("chat_id", turn.ChatID.String()),
		zap.String("owner", p.Owner().String()),
	)

	var reply strings.Builder

	if !turn.emit(ctx, start) {
		s.abandon(ctx, turn, &reply, log)
		return
	}

	turn.setState(TurnRetrieving)
	snippets, err := s.retriever.Retrieve(ctx, p.CompanyID, req.Prompt, s.cfg.RetrievalK)
	if err != nil {
		s.fail(ctx, turn, &reply, err, log)
		return
	}
	contexts := make([]string, 0, len(snippets))
	for _, sn := range snippets {
		contexts = append(contexts, sn.Content)
	}
	req.System = ai.SystemPrompt(assistant, contexts)

	turn.setState(TurnGenerating)
	stream, err := gen.Generate(ctx, req)
	if err != nil {
		s.fail(ctx, turn, &reply, err, log)
		return
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				s.abandon(ctx, turn, &reply, log)
				return
			}
			s.fail(ctx, turn, &reply, err, log)
			return
		}
		if !turn.emit(ctx, Event{Type: EventChunk, Content: chunk}) {
			s.abandon(ctx, turn, &reply, log)
			return
		}
		// Only chunks the client received count towards a partial reply.
		reply.WriteString(chunk)
	}

	turn.setState(TurnPersisting)
	// The reply is complete; store it even if the client left meanwhile.
	msg, err := s.messages.Append(context.WithoutCancel(ctx), turn.ChatID, models.RoleAI, reply.String(), false)
	if err != nil {
		log.Error("persist reply failed", zap.Error(err))
		turn.setState(TurnFailed)
		turn.emit(ctx, Event{Type: EventError, Detail: "Failed to save response"})
		return
	}
	turn.setState(TurnCompleted)
	turn.emit(ctx, Event{Type: EventEnd, ChatID: turn.ChatID.String(), MessageID: msg.ID})
	log.Debug("turn completed", zap.Int("reply_len", reply.Len()))
}

// fail handles a provider or retrieval failure after start was sent.
func (s *ChatService) fail(ctx context.Context, turn *Turn, reply *strings.Builder, cause error, log *zap.Logger) {
	if ctx.Err() != nil {
		s.abandon(ctx, turn, reply, log)
		return
	}
	log.Error("turn failed", zap.String("state", string(turn.State())), zap.Error(cause))
	s.keepPartial(ctx, turn, reply, log)
	turn.setState(TurnFailed)
	turn.emit(ctx, Event{Type: EventError, Detail: detailProviderError})
}

// abandon handles client cancellation: nothing more is emitted.
func (s *ChatService) abandon(ctx context.Context, turn *Turn, reply *strings.Builder, log *zap.Logger) {
	log.Info("turn cancelled by client", zap.String("state", string(turn.State())))
	s.keepPartial(ctx, turn, reply, log)
	turn.setState(TurnFailed)
}

func (s *ChatService) keepPartial(ctx context.Context, turn *Turn, reply *strings.Builder, log *zap.Logger) {
	if s.cfg.PartialReplyPolicy != config.PartialReplyIncomplete || reply.Len() == 0 {
		return
	}
	if _, err := s.messages.Append(context.WithoutCancel(ctx), turn.ChatID, models.RoleAI, reply.String(), true); err != nil {
		log.Error("persist partial reply failed", zap.Error(err))
	}
}

// ownedChat loads a chat and checks the caller owns it. A chat that exists
// but belongs to someone else is reported exactly like a missing one.
func (s *ChatService) ownedChat(ctx context.Context, p auth.Principal, chatID uuid.UUID) (*models.Chat, error) {
	if err := RequireChatter(p); err != nil {
		return nil, err
	}
	chat, err := s.chats.GetByID(ctx, p.CompanyID, chatID)
	if err != nil {
		return nil, apperr.Internal("get chat", err)
	}
	if chat == nil || chat.Owner != p.Owner() {
		return nil, apperr.NotFound(detailChatNotFound)
	}
	return chat, nil
}

type ChatHistory struct {
	Chat     *models.Chat     `json:"chat"`
	Messages []models.Message `json:"messages"`
}

func (s *ChatService) History(ctx context.Context, p auth.Principal, chatID uuid.UUID) (*ChatHistory, error) {
	chat, err := s.ownedChat(ctx, p, chatID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByChat(ctx, chat.ID)
	if err != nil {
		return nil, apperr.Internal("list messages", err)
	}
	return &ChatHistory{Chat: chat, Messages: msgs}, nil
}

func (s *ChatService) List(ctx context.Context, p auth.Principal) ([]models.Chat, error) {
	if err := RequireChatter(p); err != nil {
		return nil, err
	}
	chats, err := s.chats.ListByOwner(ctx, p.CompanyID, p.Owner())
	if err != nil {
		return nil, apperr.Internal("list chats", err)
	}
	return chats, nil
}

func (s *ChatService) Rename(ctx context.Context, p auth.Principal, chatID uuid.UUID, title string) (*models.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Validation("Title cannot be empty")
	}
	chat, err := s.ownedChat(ctx, p, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.chats.Rename(ctx, p.CompanyID, chat.ID, title); err != nil {
		return nil, apperr.Internal("rename chat", err)
	}
	chat.Title = title
	return chat, nil
}

func (s *ChatService) Delete(ctx context.Context, p auth.Principal, chatID uuid.UUID) error {
	chat, err := s.ownedChat(ctx, p, chatID)
	if err != nil {
		return err
	}
	if err := s.chats.SoftDelete(ctx, p.CompanyID, chat.ID); err != nil {
		return apperr.Internal("delete chat", err)
	}
	return nil
}
