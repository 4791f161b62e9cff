// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/infrastructure/auth"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/infrastructure/credentials"
	infrastructure "github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/infrastructure/mock"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/infrastructure/nats"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/infrastructure/postgres"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/infrastructure/redis"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/infrastructure/scheduling"
	internalService "github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
)

var (
	natsClient *nats.NATSClient
	natsDoOnce sync.Once

	postgresClient *postgres.Client
	postgresDoOnce sync.Once

	fileStore      *credentials.FileStore
	fileStoreOnce  sync.Once
	dispatcher     *internalService.GapSweepDispatcher
	dispatcherOnce sync.Once
)

func natsInit(ctx context.Context) {
	natsDoOnce.Do(func() {
		natsURL := os.Getenv(constants.EnvNATSURL)
		if natsURL == "" {
			natsURL = "nats://localhost:4222"
		}

		natsTimeout := os.Getenv("NATS_TIMEOUT")
		if natsTimeout == "" {
			natsTimeout = "10s"
		}
		natsTimeoutDuration, err := time.ParseDuration(natsTimeout)
		if err != nil {
			log.Fatalf("invalid NATS timeout duration: %v", err)
		}

		natsMaxReconnect := os.Getenv("NATS_MAX_RECONNECT")
		if natsMaxReconnect == "" {
			natsMaxReconnect = "3"
		}
		natsMaxReconnectInt, err := strconv.Atoi(natsMaxReconnect)
		if err != nil {
			log.Fatalf("invalid NATS max reconnect value %s: %v", natsMaxReconnect, err)
		}

		natsReconnectWait := os.Getenv("NATS_RECONNECT_WAIT")
		if natsReconnectWait == "" {
			natsReconnectWait = "2s"
		}
		natsReconnectWaitDuration, err := time.ParseDuration(natsReconnectWait)
		if err != nil {
			log.Fatalf("invalid NATS reconnect wait duration %s : %v", natsReconnectWait, err)
		}

		config := nats.Config{
			URL:             natsURL,
			CredentialsFile: os.Getenv(constants.EnvNATSCredentials),
			Timeout:         natsTimeoutDuration,
			MaxReconnect:    natsMaxReconnectInt,
			ReconnectWait:   natsReconnectWaitDuration,
			Buckets:         nats.DefaultBuckets(),
		}

		client, errNewClient := nats.NewClient(ctx, config)
		if errNewClient != nil {
			log.Fatalf("failed to create NATS client: %v", errNewClient)
		}
		natsClient = client
	})
}

// GetNATSClient returns the shared NATS client, connecting on first use
func GetNATSClient(ctx context.Context) *nats.NATSClient {
	natsInit(ctx)
	return natsClient
}

func postgresInit(ctx context.Context) {
	postgresDoOnce.Do(func() {
		config := postgres.DefaultConfig(os.Getenv("POSTGRES_DSN"))
		if migrate := os.Getenv("POSTGRES_MIGRATE"); migrate != "" {
			config.Migrate = migrate == "true"
		}

		client, err := postgres.NewClient(ctx, config)
		if err != nil {
			log.Fatalf("failed to create postgres client: %v", err)
		}
		postgresClient = client
	})
}

func fileStoreInit(ctx context.Context) {
	fileStoreOnce.Do(func() {
		path := os.Getenv("CREDENTIALS_FILE")
		if path == "" {
			path = "credentials.yaml"
		}
		store, err := credentials.LoadFile(ctx, path)
		if err != nil {
			log.Fatalf("failed to load credentials file %s: %v", path, err)
		}
		fileStore = store
	})
}

func repositorySource() string {
	repoSource := os.Getenv("REPOSITORY_SOURCE")
	if repoSource == "" {
		repoSource = "nats"
	}
	return repoSource
}

// Shutdown closes the shared clients that were opened
func Shutdown(ctx context.Context) {
	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close NATS client", "error", err)
		}
	}
	if postgresClient != nil {
		if err := postgresClient.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close postgres client", "error", err)
		}
	}
}

// EventStore initializes the event store implementation based on REPOSITORY_SOURCE
func EventStore(ctx context.Context) port.EventReaderWriter {
	var store port.EventReaderWriter

	switch repoSource := repositorySource(); repoSource {
	case "mock":
		slog.InfoContext(ctx, "initializing mock event store")
		store = infrastructure.SharedMockRepository()
	case "nats":
		slog.InfoContext(ctx, "initializing NATS event store")
		store = nats.NewStorage(GetNATSClient(ctx))
	case "postgres":
		slog.InfoContext(ctx, "initializing postgres event store")
		postgresInit(ctx)
		store = postgres.NewStorage(postgresClient)
	default:
		log.Fatalf("unsupported event store implementation: %s", repoSource)
	}

	return store
}

// MappingReader initializes the event type mapping reader. MAPPINGS_SOURCE
// defaults to REPOSITORY_SOURCE; "file" reads mappings from CREDENTIALS_FILE.
func MappingReader(ctx context.Context) port.EventTypeMappingReader {
	var reader port.EventTypeMappingReader

	mappingSource := os.Getenv("MAPPINGS_SOURCE")
	if mappingSource == "" {
		mappingSource = repositorySource()
	}

	switch mappingSource {
	case "mock":
		slog.InfoContext(ctx, "initializing mock mapping reader")
		reader = infrastructure.SharedMockRepository()
	case "nats":
		slog.InfoContext(ctx, "initializing NATS mapping reader")
		reader = nats.NewMappingReader(GetNATSClient(ctx))
	case "postgres":
		slog.InfoContext(ctx, "initializing postgres mapping reader")
		postgresInit(ctx)
		reader = postgres.NewMappingReader(postgresClient)
	case "file":
		slog.InfoContext(ctx, "initializing file mapping reader")
		fileStoreInit(ctx)
		reader = fileStore
	default:
		log.Fatalf("unsupported mapping reader implementation: %s", mappingSource)
	}

	return reader
}

// CredentialReader initializes the tenant credential store based on CREDENTIALS_SOURCE
func CredentialReader(ctx context.Context) port.CredentialReader {
	var reader port.CredentialReader

	credentialSource := os.Getenv("CREDENTIALS_SOURCE")
	if credentialSource == "" {
		credentialSource = "file"
	}

	switch credentialSource {
	case "mock":
		slog.InfoContext(ctx, "initializing mock credential store")
		reader = infrastructure.SharedMockRepository()
	case "nats":
		slog.InfoContext(ctx, "initializing NATS credential store")
		reader = nats.NewCredentialReader(GetNATSClient(ctx))
	case "file":
		slog.InfoContext(ctx, "initializing file credential store")
		fileStoreInit(ctx)
		reader = fileStore
	default:
		log.Fatalf("unsupported credential store implementation: %s", credentialSource)
	}

	return reader
}

// ProjectRetriever initializes the project name lookup used for display names
func ProjectRetriever(ctx context.Context) port.ProjectReader {
	var projectReader port.ProjectReader

	switch repoSource := repositorySource(); repoSource {
	case "mock":
		slog.InfoContext(ctx, "initializing mock project retriever")
		projectReader = infrastructure.SharedMockRepository()
	case "nats", "postgres":
		slog.InfoContext(ctx, "initializing NATS project retriever")
		projectReader = nats.NewProjectReader(GetNATSClient(ctx))
	default:
		log.Fatalf("unsupported project reader implementation: %s", repoSource)
	}

	return projectReader
}

// Fetcher initializes the canonical event fetcher
func Fetcher(ctx context.Context) port.CanonicalEventFetcher {
	config := scheduling.NewConfigFromEnv()
	if config.MockMode {
		slog.InfoContext(ctx, "initializing mock scheduling fetcher")
		return infrastructure.NewMockFetcher()
	}

	client, err := scheduling.NewClient(config)
	if err != nil {
		log.Fatalf("failed to initialize scheduling client: %v", err)
	}
	slog.InfoContext(ctx, "initializing scheduling fetcher", "base_url", config.BaseURL)
	return client
}

// SignatureVerifier initializes the webhook signature verifier
func SignatureVerifier(ctx context.Context) port.SignatureVerifier {
	tolerance := time.Duration(0)
	if toleranceStr := os.Getenv("SCHEDULING_WEBHOOK_TOLERANCE"); toleranceStr != "" {
		parsed, err := time.ParseDuration(toleranceStr)
		if err != nil {
			log.Fatalf("invalid SCHEDULING_WEBHOOK_TOLERANCE %s: %v", toleranceStr, err)
		}
		tolerance = parsed
	}
	slog.InfoContext(ctx, "initializing signature verifier", "tolerance", tolerance)
	return scheduling.NewSignatureVerifier(tolerance)
}

// SweepPublisher initializes the transport for gap sweep requests
func SweepPublisher(ctx context.Context) port.MessagePublisher {
	if repositorySource() == "mock" {
		slog.InfoContext(ctx, "initializing mock sweep publisher")
		return infrastructure.NewMockMessagePublisher()
	}
	return nats.NewMessagePublisher(GetNATSClient(ctx))
}

// SweepCooldown initializes the per event type cooldown, Redis when REDIS_URL is set
func SweepCooldown(ctx context.Context) port.SweepCooldown {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		slog.InfoContext(ctx, "initializing in-memory sweep cooldown")
		return redis.NewMemoryCooldown()
	}

	cooldown, err := redis.NewCooldown(ctx, redisURL)
	if err != nil {
		slog.WarnContext(ctx, "redis unavailable, falling back to in-memory sweep cooldown", "error", err)
		return redis.NewMemoryCooldown()
	}
	slog.InfoContext(ctx, "initializing redis sweep cooldown")
	return cooldown
}

func durationFromEnv(name string, def time.Duration) time.Duration {
	value := os.Getenv(name)
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("invalid %s duration %s: %v", name, value, err)
	}
	return parsed
}

// SweepDispatcher returns the shared gap sweep dispatcher
func SweepDispatcher(ctx context.Context) *internalService.GapSweepDispatcher {
	dispatcherOnce.Do(func() {
		dispatcher = internalService.NewGapSweepDispatcher(
			internalService.WithSweepPublisher(SweepPublisher(ctx)),
			internalService.WithSweepCooldown(
				SweepCooldown(ctx),
				durationFromEnv("SWEEP_COOLDOWN", constants.SweepDefaultCooldownSeconds*time.Second),
			),
			internalService.WithSweepWindow(durationFromEnv("SWEEP_WINDOW", constants.SweepDefaultWindowHours*time.Hour)),
		)
	})
	return dispatcher
}

// EventReconciler builds the reconciler over the configured event store
func EventReconciler(ctx context.Context) internalService.EventReconciler {
	return internalService.NewEventReconciler(
		internalService.WithEventStore(EventStore(ctx)),
	)
}

// WebhookProcessor wires the webhook pipeline
func WebhookProcessor(ctx context.Context) port.WebhookProcessor {
	return internalService.NewWebhookProcessor(
		internalService.WithSignatureVerifier(SignatureVerifier(ctx)),
		internalService.WithCredentialReader(CredentialReader(ctx)),
		internalService.WithFallbackSecret(os.Getenv(constants.EnvWebhookSecret)),
		internalService.WithMappingReader(MappingReader(ctx)),
		internalService.WithFetcher(Fetcher(ctx)),
		internalService.WithReconciler(EventReconciler(ctx)),
		internalService.WithSweepTrigger(SweepDispatcher(ctx)),
		internalService.WithProjectReader(ProjectRetriever(ctx)),
	)
}

// GapSweepService wires the sweep consumer
func GapSweepService(ctx context.Context) internalService.GapSweepService {
	return internalService.NewGapSweepService(
		internalService.WithSweepMappingReader(MappingReader(ctx)),
		internalService.WithSweepCredentialReader(CredentialReader(ctx)),
		internalService.WithSweepFetcher(Fetcher(ctx)),
		internalService.WithSweepReconciler(EventReconciler(ctx)),
		internalService.WithSweepProjectReader(ProjectRetriever(ctx)),
	)
}

// AuthService initializes the authentication service implementation
func AuthService(ctx context.Context) port.Authenticator {
	var authService port.Authenticator

	authSource := os.Getenv("AUTH_SOURCE")
	if authSource == "" {
		authSource = "jwt"
	}

	switch authSource {
	case "mock":
		slog.InfoContext(ctx, "initializing mock authentication service")
		authService = infrastructure.NewMockAuthService("")
	case "jwt":
		slog.InfoContext(ctx, "initializing JWT authentication service")
		jwtConfig := auth.JWTAuthConfig{
			JWKSURL:  os.Getenv("JWKS_URL"),
			Issuer:   os.Getenv("JWT_ISSUER"),
			Audience: os.Getenv("JWT_AUDIENCE"),
		}
		jwtAuth, err := auth.NewJWTAuth(jwtConfig)
		if err != nil {
			log.Fatalf("failed to initialize JWT authentication service: %v", err)
		}
		authService = jwtAuth
	default:
		log.Fatalf("unsupported authentication service implementation: %s", authSource)
	}

	return authService
}

// SweepConsumerEnabled reports whether sweep requests travel over NATS
func SweepConsumerEnabled() bool {
	return repositorySource() != "mock"
}

// ReadinessChecks lists the dependencies /readyz waits on
func ReadinessChecks(ctx context.Context) map[string]ReadinessCheck {
	checks := map[string]ReadinessCheck{
		"event-store": EventStore(ctx).IsReady,
	}
	if SweepConsumerEnabled() {
		checks["nats"] = GetNATSClient(ctx).IsReady
	}
	return checks
}
