package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fido2_rp_ms/config"
	"fido2_rp_ms/controller"
	"fido2_rp_ms/middleware"
	"fido2_rp_ms/repository"
	"fido2_rp_ms/services"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	conf   *config.Config
	logger *zap.Logger

	//DB
	dbConnection *gorm.DB

	//Redis Client
	redisClient *redis.Client

	//WebAuthn Conf
	webAuthn *webauthn.WebAuthn

	// Repository
	userRepository       repository.IUserRepository
	credentialRepository repository.ICredentialRepository

	// Service
	challengeService services.IChallengeService
	metadataService  services.IMetadataService
	ceremonyVerifier services.ICeremonyVerifier
	ceremonyService  services.ICeremonyService
	eventPublisher   services.IEventPublisher

	// Controller
	ceremonyController controller.ICeremonyController
}

func newService(conf *config.Config) *service {
	return &service{conf: conf}
}

// NOTE: Service Start
func (s *service) Start() {
	app := s.conf.Application

	s.logger = config.InitLogger()

	log.Info("Opening database connection...")
	s.dbConnection = config.OpenDatabaseConnection(app.Datasource)
	config.Migrate(app.Migration, app.Datasource.PrimaryURL)

	log.Info("Opening redis connection...")
	s.redisClient = config.ConnectToRedis(app.Redis)

	log.Info("WebAuthn config")
	s.webAuthn = config.InitWebAuthn(app.RelyingParty)

	middleware.InitValidator()

	// NOTE: Dependency Injections
	s.DependencyInjection()

	// NOTE: Start Fiber server...
	fiberApp := NewServer(s.ceremonyController, s.logger).Start(app.Server)

	log.Info("Server starting..")
	// NOTE: Server start with goroutine
	go func() {
		if err := fiberApp.Listen(app.Server.Port); err != nil {
			log.Fatal("Server failed to start")
		}
	}()
	// NOTE: Keep OS signals for graceful shutdown
	s.gracefulShutdown(fiberApp)
}

// NOTE: Depency Injection Operation
func (s *service) DependencyInjection() {
	app := s.conf.Application

	// NOTE: Repositories Injections
	s.userRepository = repository.NewUserRepository()
	s.credentialRepository = repository.NewCredentialRepository()

	// NOTE: Services Injections
	challengeTTL := app.Redis.ChallengeTTLInSeconds
	if challengeTTL <= 0 {
		challengeTTL = config.DefaultChallengeTTLSeconds
	}
	s.challengeService = services.NewChallengeService(s.redisClient, time.Duration(challengeTTL)*time.Second)

	fetchTimeout := app.Metadata.FetchTimeoutInSeconds
	if fetchTimeout <= 0 {
		fetchTimeout = 30
	}
	fetcher := services.NewFastHTTPFetcher(time.Duration(fetchTimeout) * time.Second)
	mdsClient := services.NewMDSClient(app.Metadata.ServiceURL, fetcher)
	s.metadataService = services.NewMetadataService(app.Metadata.Dir, mdsClient, fetcher, s.logger)

	s.ceremonyVerifier = services.NewCeremonyVerifier(s.webAuthn)
	s.ceremonyService = services.NewCeremonyService(
		s.dbConnection,
		app.RelyingParty,
		s.userRepository,
		s.credentialRepository,
		s.challengeService,
		s.ceremonyVerifier,
		s.metadataService,
	)

	publisher, err := services.NewKafkaEventPublisher(app.Kafka, s.logger)
	if err != nil {
		log.Fatal("Failed to create kafka producer", err)
	}
	s.eventPublisher = publisher

	// NOTE: Controllers Injections
	s.ceremonyController = controller.NewCeremonyController(s.ceremonyService, s.eventPublisher, s.logger)
}

// NOTE: Graceful shutdown operation
func (s *service) gracefulShutdown(app *fiber.App) {

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// NOTE:Server Shutdown when keep signal
	<-sigChan
	log.Info("Shutting down server...")
	// NOTE: Creating context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// NOTE: Shutdown Fiber server
	if err := app.Shutdown(); err != nil {
		log.Error("error while shutting down app", err)
	}

	if err := s.eventPublisher.Close(); err != nil {
		log.Error("error while closing kafka producer", err)
	}

	// NOTE: Shutdown Database connection
	done := make(chan bool)
	go func() {
		config.CloseDatabaseConnection(s.dbConnection)
		done <- true
	}()

	select {
	case <-ctx.Done():
		log.Error("timeout while shutting down database", ctx.Err())
	case <-done:
		log.Info("database is gracefully shutdown", ctx.Err())
	}
}
