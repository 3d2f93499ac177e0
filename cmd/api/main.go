package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/homedispo/crm-bridge/internal/config"
	"github.com/homedispo/crm-bridge/internal/infra/crypto"
	"github.com/homedispo/crm-bridge/internal/infra/database"
	"github.com/homedispo/crm-bridge/internal/infra/dynamo"
	"github.com/homedispo/crm-bridge/internal/infra/http/handlers"
	"github.com/homedispo/crm-bridge/internal/infra/http/middleware"
	"github.com/homedispo/crm-bridge/internal/infra/integration/docusign"
	"github.com/homedispo/crm-bridge/internal/infra/integration/ghl"
	"github.com/homedispo/crm-bridge/internal/infra/integration/webhook"
	"github.com/homedispo/crm-bridge/internal/infra/mail"
	"github.com/homedispo/crm-bridge/internal/infra/queue"
	"github.com/homedispo/crm-bridge/internal/infra/worker"
	"github.com/homedispo/crm-bridge/internal/logger"
	"github.com/homedispo/crm-bridge/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	ddb, err := dynamo.NewClient(ctx, dynamo.Options{
		Region:          cfg.Storage.DynamoRegion,
		Endpoint:        cfg.Storage.DynamoEndpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
	})
	if err != nil {
		log.Fatal("dynamodb client", zap.Error(err))
	}

	var (
		store usecase.ConnectionStore
		db    *sql.DB
	)
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err = database.NewDBConnection(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			log.Fatal("postgres connection", zap.Error(err))
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Fatal("postgres schema", zap.Error(err))
		}
		store = database.NewConnectionRepository(db)
	default:
		store = dynamo.NewConnectionStore(ddb, dynamo.TableName(cfg.Storage.DynamoPrefix, "connections"))
	}
	properties := dynamo.NewPropertyRepository(ddb, dynamo.TableName(cfg.Storage.DynamoPrefix, "properties"))
	countyRecords := dynamo.NewCountyRecordRepository(ddb, cfg.County.Table)

	// 2. Token lifecycle
	var cipher usecase.TokenCipher = crypto.PlainCipher{}
	if cfg.CRM.EncKey != "" {
		fc, err := crypto.NewFernetCipher(cfg.CRM.EncKey)
		if err != nil {
			log.Fatal("ENC_KEY", zap.Error(err))
		}
		cipher = fc
	} else {
		log.Warn("ENC_KEY not set, tokens are stored unencrypted")
	}

	oauth := ghl.NewOAuthClient(ghl.OAuthConfig{
		ClientID:     cfg.CRM.ClientID,
		ClientSecret: cfg.CRM.ClientSecret,
		AuthorizeURL: cfg.CRM.AuthorizeURL,
		TokenURL:     cfg.CRM.TokenURL,
		RedirectURL:  cfg.CRM.RedirectURL,
		Scopes:       cfg.CRM.Scopes,
	})

	metrics := middleware.DomainMetrics{}
	tokens := usecase.NewTokenManager(store, cipher, oauth, log)
	tokens.Metrics = metrics

	crm := ghl.NewClient(cfg.CRM.BaseURL, cfg.CRM.APIVersion, cfg.HTTPTimeout, tokens, log)
	tokens.Locations = crm

	if cfg.Mail.Enabled() {
		connectURL := cfg.CRM.ConnectURL()
		if connectURL == "" {
			log.Warn("CRM_REDIRECT_URL not set, relink emails will carry no link")
		}
		tokens.Notifier = mail.NewEmailSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Pass, cfg.Mail.AlertEmail, connectURL)
	}

	if lister, ok := store.(worker.ExpiredLister); ok && cfg.TokenSweepInterval > 0 {
		go worker.NewTokenRefreshWorker(lister, tokens, cfg.TokenSweepInterval, log).Start(ctx)
	}

	// 3. County stream delivery
	hook := webhook.NewClient(cfg.County.WebhookURL, cfg.HTTPTimeout, log)
	if cfg.County.WebhookURL == "" {
		log.Warn("COUNTY_WEBHOOK_URL not set, county records will fail to forward")
	}

	var (
		forwarder usecase.CountyForwarder = hook
		broker    interface{ Healthy() bool }
	)
	if cfg.RabbitMQURL != "" {
		rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			log.Fatal("rabbitmq", zap.Error(err))
		}
		defer rabbitMQ.Close()

		forwarder = queue.NewProducer(rabbitMQ.Ch)
		broker = rabbitMQ

		consumerCh, err := rabbitMQ.Conn.Channel()
		if err != nil {
			log.Fatal("rabbitmq consumer channel", zap.Error(err))
		}
		consumer := queue.NewWorker(consumerCh, hook, log)
		go func() {
			if err := consumer.Start(ctx, queue.QueueName); err != nil {
				log.Error("county worker stopped", zap.Error(err))
			}
		}()
	}

	// 4. Use cases
	reconciler := usecase.NewReconciler(crm, log)
	reconciler.Metrics = metrics
	phones := usecase.NewPhoneUpdater(crm, log)
	followUps := usecase.NewFollowUpTaskCreator(crm, log)
	ingestor := usecase.NewCountyIngestor(countyRecords, forwarder, log)

	var sender handlers.EnvelopeSender
	if cfg.DocuSign.Enabled() {
		layout, err := docusign.LoadLayout(cfg.DocuSign.LayoutFile)
		if err != nil {
			log.Fatal("envelope layout", zap.Error(err))
		}
		ds, err := docusign.NewClient(docusign.Config{
			IntegrationKey: cfg.DocuSign.IntegrationKey,
			UserID:         cfg.DocuSign.UserID,
			AccountID:      cfg.DocuSign.AccountID,
			OAuthBaseURL:   cfg.DocuSign.OAuthBaseURL,
			APIBaseURL:     cfg.DocuSign.APIBaseURL,
			PrivateKeyPEM:  cfg.DocuSign.PrivateKey,
			SignerName:     cfg.DocuSign.SignerName,
			SignerEmail:    cfg.DocuSign.SignerEmail,
		}, layout, cfg.HTTPTimeout, log)
		if err != nil {
			log.Fatal("docusign client", zap.Error(err))
		}
		sender = usecase.NewEnvelopeSender(properties, crm, ds, layout, log)
	} else {
		log.Warn("DocuSign not configured, /api/v1/send_envelope is disabled")
	}

	// 5. Handlers
	var storagePing handlers.Pinger
	if db != nil {
		storagePing = db
	}
	healthHandler := handlers.NewHealthHandler(cfg.Storage.Driver, storagePing, broker, map[string]bool{
		"crm_oauth": cfg.CRM.ClientID != "",
		"docusign":  cfg.DocuSign.Enabled(),
		"mail":      cfg.Mail.Enabled(),
	})
	stateSecret := cfg.CRM.StateSecret
	if stateSecret == "" {
		stateSecret = uuid.NewString()
		log.Warn("OAUTH_STATE_SECRET and CRM_CLIENT_SECRET not set, oauth state is only valid for this process")
	}
	authHandler := handlers.NewAuthHandler(tokens, handlers.NewStateSigner(stateSecret, 15*time.Minute), log)
	uploadHandler := handlers.NewUploadHandler(reconciler, log)
	phonesHandler := handlers.NewPhonesHandler(phones, log)
	taskHandler := handlers.NewTaskHandler(followUps, log)
	envelopeHandler := handlers.NewEnvelopeHandler(sender, log)
	ingestHandler := handlers.NewIngestHandler(ingestor, log)
	ingestLimiter := handlers.NewRateLimiter(120, time.Minute)

	// 6. Router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	r.Use(middleware.Metrics)

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/auth/connect", authHandler.Connect)
	r.Get("/auth/redirect", authHandler.Redirect)

	r.Post("/crm/upload-contact", uploadHandler.UploadContacts)
	r.Post("/update-phones", phonesHandler.UpdatePhones)
	r.Post("/webhook/create-task", taskHandler.CreateTask)
	r.Post("/api/v1/send_envelope", envelopeHandler.SendEnvelope)

	r.Route("/craimer", func(r chi.Router) {
		r.With(ingestLimiter.Middleware).Post("/data-ingest", ingestHandler.Ingest)
		r.Get("/records/{tenantID}", ingestHandler.ListRecords)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", zap.Error(err))
	}
}
