package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/applymint/applymint/config"
	"github.com/applymint/applymint/internal/api/handlers"
	"github.com/applymint/applymint/internal/api/middleware"
	"github.com/applymint/applymint/internal/api/routes"
	"github.com/applymint/applymint/internal/cache"
	"github.com/applymint/applymint/internal/events"
	"github.com/applymint/applymint/internal/grading"
	"github.com/applymint/applymint/internal/logger"
	"github.com/applymint/applymint/internal/metrics"
	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/providers/gemini"
	"github.com/applymint/applymint/internal/providers/llm"
	"github.com/applymint/applymint/internal/providers/stt"
	"github.com/applymint/applymint/internal/questions"
	mongorepo "github.com/applymint/applymint/internal/repositories/mongo"
	pgrepo "github.com/applymint/applymint/internal/repositories/postgres"
	"github.com/applymint/applymint/internal/services"
	"github.com/applymint/applymint/internal/storage"
	"github.com/applymint/applymint/internal/workers"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init PostgreSQL
	db, err := config.InitPostgres(cfg.PostgresURI)
	if err != nil {
		log.WithError(err).Fatal("postgres init failed")
	}
	if err := pgrepo.Migrate(db); err != nil {
		log.WithError(err).Fatal("postgres migration failed")
	}
	log.Info("postgres connected")

	checks := map[string]handlers.Check{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// Init MongoDB (optional: stream event log)
	var eventRepo mongorepo.EventRepository
	var mongoClient *mongo.Client
	if cfg.MongoURI != "" {
		mongoClient, err = config.InitMongo(cfg.MongoURI)
		if err != nil {
			log.WithError(err).Fatal("mongo init failed")
		}
		mdb := mongoClient.Database(cfg.MongoDB)
		if err := config.EnsureMongoIndexes(mdb); err != nil {
			log.WithError(err).Warn("mongo index setup failed")
		}
		eventRepo = mongorepo.NewEventRepo(mdb)
		checks["mongo"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
		log.Info("mongo connected")
	}

	// Init Redis (optional: cache, fan-out, transcription queue)
	var rdb *redis.Client
	var appCache cache.Cache = cache.Nop{}
	var broker events.Broker = events.NewMemoryBroker()
	if cfg.RedisAddr != "" {
		rdb, err = config.InitRedis(cfg.RedisAddr)
		if err != nil {
			log.WithError(err).Fatal("redis init failed")
		}
		appCache = cache.NewRedisCache(rdb)
		broker = events.NewRedisBroker(rdb, log)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info("redis connected")
	}

	// RabbitMQ (optional: domain events)
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitURI != "" {
		rp, err := events.NewRabbitPublisher(cfg.RabbitURI, log)
		if err != nil {
			log.WithError(err).Warn("rabbitmq unavailable, domain events disabled")
		} else {
			publisher = rp
		}
	}
	defer publisher.Close()

	m := metrics.New()

	// Providers
	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiBaseURL, cfg.GeminiAPIKey)
	if err != nil {
		log.WithError(err).Fatal("gemini client init failed")
	}
	var embedder gemini.Embedder
	if geminiClient.Configured() {
		embedder = gemini.NewTextEmbedder(geminiClient, cfg.EmbeddingModel, models.EmbeddingDims)
	}

	bank, err := questions.NewBankGenerator(nil)
	if err != nil {
		log.WithError(err).Fatal("question bank load failed")
	}
	var generator questions.Generator = bank
	var grader grading.Grader = grading.NewRangeGrader()

	messageRepo := pgrepo.NewMessageRepo(db)

	if cfg.VertexProject != "" {
		vertex, err := llm.NewVertexGemini(ctx, cfg.VertexProject, cfg.VertexLocation, cfg.VertexModel)
		if err != nil {
			log.WithError(err).Warn("vertex unavailable, using question bank and range grader")
		} else {
			defer vertex.Close()
			grader = grading.NewLLMGrader(vertex)
			gen := &questions.LLMGenerator{LLM: vertex, Fallback: bank, Logger: log}
			if embedder != nil {
				gen.Embedder = embedder
				gen.Answers = messageRepo
			}
			generator = gen
		}
	}

	var store storage.Store
	if cfg.GCSBucket != "" {
		gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			log.WithError(err).Warn("gcs unavailable, audio upload disabled")
		} else {
			defer gcs.Close()
			store = gcs
		}
	}

	var speech stt.Provider
	if store != nil {
		gs, err := stt.NewGoogleSpeech(ctx)
		if err != nil {
			log.WithError(err).Warn("speech unavailable, audio is stored without transcription")
		} else {
			defer gs.Close()
			speech = gs
		}
	}

	// Services
	sessionSvc := services.NewSessionService(pgrepo.NewSessionRepo(db), appCache, publisher, log)
	questionSvc := services.NewQuestionService(pgrepo.NewQuestionRepo(db), appCache)
	responseSvc := services.NewResponseService(pgrepo.NewResponseRepo(db), appCache)
	messageSvc := services.NewMessageService(messageRepo, appCache, embedder, log)
	conversationSvc := services.NewConversationService(sessionSvc, questionSvc, responseSvc, messageSvc, appCache, log)
	eventLogSvc := services.NewEventLogService(eventRepo, cfg.EventLogTTL, log)
	tokenSvc := services.NewTokenService(geminiClient, sessionSvc, cfg.GeminiLiveModel, m, log)

	interviewSvc := services.NewInterviewService(services.InterviewDeps{
		Sessions:  sessionSvc,
		Questions: questionSvc,
		Responses: responseSvc,
		Messages:  messageSvc,
		Generator: generator,
		Grader:    grader,
		Broker:    broker,
		Publisher: publisher,
		Logger:    log,
	})

	var queue services.JobQueue
	if rdb != nil {
		queue = &workers.RedisQueue{Redis: rdb}
	}
	audioSvc := services.NewAudioService(services.AudioDeps{
		Store:     store,
		Queue:     queue,
		STT:       speech,
		Sessions:  sessionSvc,
		Questions: questionSvc,
		Messages:  messageSvc,
		Broker:    broker,
		Metrics:   m,
		Logger:    log,
	})

	// Workers
	var pool *workers.TranscriptionPool
	if rdb != nil && speech != nil {
		pool = &workers.TranscriptionPool{
			Redis:      rdb,
			Audio:      audioSvc,
			NumWorkers: cfg.TranscribeWorkers,
			Logger:     log,
		}
		if err := pool.Start(ctx); err != nil {
			log.WithError(err).Fatal("transcription workers failed to start")
		}
	}

	// HTTP
	streamHandler := handlers.NewStreamHandler(sessionSvc, interviewSvc, eventLogSvc, broker, m, log, handlers.StreamConfig{
		Heartbeat:     cfg.HeartbeatInterval,
		QuestionDelay: cfg.QuestionDelay,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	routes.RegisterRoutes(r, routes.Deps{
		Session: handlers.NewSessionHandler(sessionSvc, conversationSvc),
		Stream:  streamHandler,
		WS:      handlers.NewWSHandler(streamHandler, cfg.CORSOrigins),
		Token:   handlers.NewTokenHandler(tokenSvc),
		Audio:   handlers.NewAudioHandler(audioSvc),
		Events:  handlers.NewEventsHandler(sessionSvc, eventLogSvc),
		Health:  handlers.NewHealthHandler(checks),

		JWT: middleware.JWTConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
		Metrics:            m,
		Logger:             log,
		CORSOrigins:        cfg.CORSOrigins,
		TokenRatePerMinute: cfg.TokenRatePerMinute,
	})

	srv := newHTTPServer(ctx, ":"+cfg.Port, r)

	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if pool != nil {
		pool.Wait()
	}
	closeClients(shutdownCtx, log, rdb, mongoClient)
}

// newHTTPServer derives every request context from base, so cancelling base
// ends open SSE and WebSocket channels before Shutdown waits on them.
func newHTTPServer(base context.Context, addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
}

func closeClients(ctx context.Context, log *logrus.Logger, rdb *redis.Client, mc *mongo.Client) {
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.WithError(err).Warn("redis close")
		}
	}
	if mc != nil {
		if err := mc.Disconnect(ctx); err != nil {
			log.WithError(err).Warn("mongo disconnect")
		}
	}
}
