package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/lalith-99/chatelio/internal/ai"
	"github.com/lalith-99/chatelio/internal/api"
	"github.com/lalith-99/chatelio/internal/auth"
	"github.com/lalith-99/chatelio/internal/config"
	"github.com/lalith-99/chatelio/internal/db"
	"github.com/lalith-99/chatelio/internal/objectstore"
	"github.com/lalith-99/chatelio/internal/observ"
	"github.com/lalith-99/chatelio/internal/repository"
	"github.com/lalith-99/chatelio/internal/repository/memory"
	"github.com/lalith-99/chatelio/internal/repository/postgres"
	"github.com/lalith-99/chatelio/internal/repository/redisstore"
	"github.com/lalith-99/chatelio/internal/service"
	"github.com/lalith-99/chatelio/internal/vectorstore"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// stores is the persistence backend chosen at startup.
type stores struct {
	companies repository.CompanyRepository
	users     repository.UserRepository
	sessions  repository.GuestSessionRepository
	chats     repository.ChatRepository
	messages  repository.MessageRepository
	kbs       repository.KnowledgeBaseRepository
	analytics repository.AnalyticsRepository
	refresh   auth.RefreshStore
	vectors   vectorstore.Store
	ping      func(ctx context.Context) error
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 1. Config and logger
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// ---------------------------------------------------------------
	// 2. Model providers
	// ---------------------------------------------------------------
	registry := ai.NewRegistry(cfg.DefaultModel)
	var embedder ai.Embedder

	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EmbeddingModel, logger)
		if err != nil {
			return fmt.Errorf("create gemini client: %w", err)
		}
		defer gemini.Close()
		registry.Register("Gemini", gemini)
		if strings.EqualFold(cfg.EmbeddingProvider, "gemini") {
			embedder = gemini
		}
	}
	if cfg.OpenAIAPIKey != "" {
		openai := ai.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.EmbeddingModel, logger)
		registry.Register("OpenAI", openai)
		if embedder == nil && (strings.EqualFold(cfg.EmbeddingProvider, "openai") || cfg.GeminiAPIKey == "") {
			embedder = openai
		}
	}
	if len(registry.Names()) == 0 {
		logger.Warn("no model provider configured; chat requests will be rejected")
	}

	// ---------------------------------------------------------------
	// 3. Persistence
	// ---------------------------------------------------------------
	var st stores
	if cfg.UseInMemory {
		mem := memory.NewDB()
		st = stores{
			companies: memory.NewCompanyStore(mem),
			users:     memory.NewUserStore(mem),
			sessions:  memory.NewGuestSessionStore(mem),
			chats:     memory.NewChatStore(mem),
			messages:  memory.NewMessageStore(mem),
			kbs:       memory.NewKnowledgeBaseStore(mem),
			analytics: memory.NewAnalyticsStore(mem),
			refresh:   memory.NewRefreshStore(mem),
			vectors:   vectorstore.NewMemory(),
		}
		logger.Info("using in-memory stores")
	} else {
		database, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		rdb, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rdb.Close()

		if embedder == nil {
			return errors.New("an embedding provider (GEMINI_API_KEY or OPENAI_API_KEY) is required unless USE_IN_MEMORY is set")
		}

		pool := database.Pool()
		st = stores{
			companies: postgres.NewCompanyStore(pool),
			users:     postgres.NewUserStore(pool),
			sessions:  postgres.NewGuestSessionStore(pool),
			chats:     postgres.NewChatStore(pool),
			messages:  postgres.NewMessageStore(pool),
			kbs:       postgres.NewKnowledgeBaseStore(pool),
			analytics: postgres.NewAnalyticsStore(pool),
			refresh:   redisstore.NewRefreshStore(rdb),
			vectors:   vectorstore.NewPGVector(pool, embedder, logger),
			ping: func(ctx context.Context) error {
				if err := database.Health(ctx); err != nil {
					return fmt.Errorf("postgres: %w", err)
				}
				if err := rdb.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
				return nil
			},
		}
	}

	var archive objectstore.Archive
	if cfg.ObjectStorageEnabled() {
		s3, err := objectstore.NewS3(ctx, objectstore.S3Config{
			Region:    cfg.AWSRegion,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			Bucket:    cfg.BucketName,
		}, logger)
		if err != nil {
			return fmt.Errorf("create s3 archive: %w", err)
		}
		archive = s3
	}

	// ---------------------------------------------------------------
	// 4. Services
	// ---------------------------------------------------------------
	tokens := auth.NewTokenService(auth.TokenConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, st.refresh)

	identity := service.NewIdentityService(st.companies, st.users, st.sessions, tokens, cfg.GuestSessionTTL, logger)
	knowledge := service.NewKnowledgeService(st.kbs, st.vectors, archive, cfg.MaxUploadBytes, cfg.RetrievalK, logger)
	chat := service.NewChatService(st.chats, st.messages, st.companies, knowledge, registry, service.ChatConfig{
		RetrievalK:         cfg.RetrievalK,
		HistoryWindow:      cfg.HistoryWindow,
		PartialReplyPolicy: cfg.PartialReplyPolicy,
	}, logger)

	urls := service.URLConfig{
		BaseDomain:   cfg.BaseDomain,
		Protocol:     cfg.ChatbotProtocol,
		UseSubdomain: cfg.UseSubdomainRouting,
	}

	// ---------------------------------------------------------------
	// 5. HTTP server
	// ---------------------------------------------------------------
	router := api.NewRouter(api.Deps{
		Identity:       identity,
		Knowledge:      knowledge,
		Chat:           chat,
		Public:         service.NewPublicService(st.companies, identity, chat, urls, logger),
		Settings:       service.NewSettingsService(st.companies, urls, logger),
		Analytics:      service.NewAnalyticsService(st.analytics, logger),
		URLs:           urls,
		AllowedOrigins: cfg.AllowedOrigins(),
		Ping:           st.ping,
		Logger:         logger,
	})

	handler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Chat-ID", "X-Session-ID", "X-Company-Slug", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting chatelio",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.Strings("models", registry.Names()),
			zap.Bool("in_memory", cfg.UseInMemory),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
