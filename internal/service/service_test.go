package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/ai"
	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/auth"
	"github.com/lalith-99/chatelio/internal/repository/memory"
	"github.com/lalith-99/chatelio/internal/vectorstore"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeGenerator streams chunks, optionally failing before chunk failAt or
// blocking after the last chunk until the turn is cancelled.
type fakeGenerator struct {
	mu      sync.Mutex
	chunks  []string
	failAt  int
	block   bool
	openErr error
	last    ai.Request
	calls   int
}

func newFakeGenerator(chunks ...string) *fakeGenerator {
	return &fakeGenerator{chunks: chunks, failAt: -1}
}

func (g *fakeGenerator) Generate(ctx context.Context, req ai.Request) (ai.Stream, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = req
	g.calls++
	if g.openErr != nil {
		return nil, g.openErr
	}
	return &fakeStream{ctx: ctx, chunks: g.chunks, failAt: g.failAt, block: g.block}, nil
}

func (g *fakeGenerator) lastRequest() ai.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeStream struct {
	ctx    context.Context
	chunks []string
	i      int
	failAt int
	block  bool
}

func (s *fakeStream) Recv() (string, error) {
	if s.failAt >= 0 && s.i == s.failAt {
		return "", errors.New("provider connection reset")
	}
	if s.i < len(s.chunks) {
		c := s.chunks[s.i]
		s.i++
		return c, nil
	}
	if s.block {
		<-s.ctx.Done()
		return "", s.ctx.Err()
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error { return nil }

// failingVectors wraps a Store and fails writes.
type failingVectors struct {
	vectorstore.Store
}

func (failingVectors) Put(ctx context.Context, companyID, docID uuid.UUID, text string) error {
	return errors.New("embedding provider unavailable")
}

type harness struct {
	clock *fakeClock
	db    *memory.DB
	gen   *fakeGenerator

	vectors   *vectorstore.Memory
	identity  *IdentityService
	knowledge *KnowledgeService
	chat      *ChatService
	public    *PublicService
	settings  *SettingsService
	analytics *AnalyticsService
}

func newHarness(t *testing.T, policy string) *harness {
	t.Helper()
	logger := zap.NewNop()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	db := memory.NewDB().WithClock(clock.Now)

	companies := memory.NewCompanyStore(db)
	tokens := auth.NewTokenService(auth.TokenConfig{
		Secret:     "test-secret",
		Issuer:     "chatelio",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, memory.NewRefreshStore(db)).WithClock(clock.Now)

	identity := NewIdentityService(companies, memory.NewUserStore(db), memory.NewGuestSessionStore(db),
		tokens, 10*time.Minute, logger).WithClock(clock.Now)
	identity.hashCost = bcrypt.MinCost

	vectors := vectorstore.NewMemory()
	knowledge := NewKnowledgeService(memory.NewKnowledgeBaseStore(db), vectors, nil, 1024, 3, logger)

	gen := newFakeGenerator("Hello", " world")
	registry := ai.NewRegistry("Gemini")
	registry.Register("Gemini", gen)

	chat := NewChatService(memory.NewChatStore(db), memory.NewMessageStore(db), companies, knowledge, registry,
		ChatConfig{RetrievalK: 3, HistoryWindow: 10, PartialReplyPolicy: policy}, logger)

	urls := URLConfig{BaseDomain: "chatelio.test", Protocol: "https", UseSubdomain: true}
	settings := NewSettingsService(companies, urls, logger)
	settings.now = clock.Now

	return &harness{
		clock:     clock,
		db:        db,
		gen:       gen,
		vectors:   vectors,
		identity:  identity,
		knowledge: knowledge,
		chat:      chat,
		public:    NewPublicService(companies, identity, chat, urls, logger),
		settings:  settings,
		analytics: NewAnalyticsService(memory.NewAnalyticsStore(db), logger).WithClock(clock.Now),
	}
}

func (h *harness) company(t *testing.T, email string) *CompanyAuth {
	t.Helper()
	res, err := h.identity.RegisterCompany(context.Background(), RegisterCompanyInput{
		Name: "Acme " + email, Email: email, Password: "s3cret-pass",
	})
	require.NoError(t, err)
	return res
}

func (h *harness) user(t *testing.T, companyID uuid.UUID, email string) auth.Principal {
	t.Helper()
	res, err := h.identity.RegisterUser(context.Background(), RegisterUserInput{
		CompanyID: companyID, Email: email, Name: "Test User", Password: "s3cret-pass",
	})
	require.NoError(t, err)
	return auth.UserPrincipal(companyID, res.User.ID)
}

func (h *harness) guest(t *testing.T, companyID uuid.UUID) (auth.Principal, *GuestAuth) {
	t.Helper()
	res, err := h.identity.CreateGuestSession(context.Background(), companyID, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	return auth.GuestPrincipal(companyID, res.Session.ID), res
}

// collect drains a turn and waits for persistence to finish.
func collect(t *testing.T, turn *Turn) []Event {
	t.Helper()
	var events []Event
	for ev := range turn.Events() {
		events = append(events, ev)
	}
	turn.Wait()
	return events
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), "got %v", err)
}
