package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	kycommon "github.com/getAlby/kychub.go/common"
	"github.com/getAlby/kychub.go/db"
	"github.com/getAlby/kychub.go/lib/idempotency"
	"github.com/getAlby/kychub.go/lib/logging"
	"github.com/getAlby/kychub.go/lib/service"
	"github.com/getAlby/kychub.go/lib/tokens"
	"github.com/getAlby/kychub.go/lib/transport"
	"github.com/getAlby/kychub.go/lib/zkp"
	"github.com/getAlby/kychub.go/rabbitmq"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo/v4"
	ddEcho "gopkg.in/DataDog/dd-trace-go.v1/contrib/labstack/echo.v4"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func main() {

	c := &service.Config{}

	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configrued log file
	logger := logging.Logger(c.LogFilePath, logging.ParseLevel(c.LogLevel))

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStartup()

	// memory:// or a migrated postgres database
	store, err := db.OpenStore(startupCtx, c)
	if err != nil {
		logger.Fatalf("Error initializing store: %v", err)
	}
	defer store.Close()

	// Setup exception tracking with Sentry if configured
	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			IgnoreErrors:     []string{"401"},
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
	}

	proofVerifier, err := newProofVerifier(c)
	if err != nil {
		logger.Fatalf("Error initializing the %s proof verifier: %v", c.ProofVerifier, err)
	}
	logger.Infof("Verifying proofs with %s", c.ProofVerifier)

	svc := &service.KychubService{
		Config:        c,
		Store:         store,
		ProofVerifier: proofVerifier,
		Logger:        logger,
		EventPubSub:   service.NewPubsub(),
	}
	if err := svc.BootstrapVerifiers(startupCtx); err != nil {
		logger.Fatalf("Error adding configured verifiers: %v", err)
	}

	// If no RABBITMQ_URI was provided we will not attempt to create a client
	// No rabbitmq features will be available in this case.
	var rabbitmqClient rabbitmq.Client
	if c.RabbitMQUri != "" {
		rabbitmqClient, err = rabbitmq.Dial(c.RabbitMQUri,
			rabbitmq.WithLogger(logger),
			rabbitmq.WithEventExchange(c.RabbitMQEventExchange),
		)
		if err != nil {
			logger.Fatal(err)
		}

		// close the connection gently at the end of the runtime
		defer rabbitmqClient.Close()
	}

	idempotencyStore, err := newIdempotencyStore(startupCtx, c)
	if err != nil {
		logger.Fatalf("Error initializing idempotency store: %v", err)
	}

	//init echo server
	e := transport.InitEcho(c, logger)
	//if Datadog is configured, add datadog middleware
	if c.DatadogAgentUrl != "" {
		tracer.Start(tracer.WithAgentAddr(c.DatadogAgentUrl))
		defer tracer.Stop()
		e.Use(ddEcho.Middleware(ddEcho.WithServiceName("kychub.go")))
	}

	cacheClient, err := transport.CreateCacheClient()
	if err != nil {
		logger.Fatal(err)
	}
	transport.RegisterV2Endpoints(svc, e, transport.Middlewares{
		Auth:  tokens.Middleware(c.JWTSecret),
		Admin: tokens.AdminTokenMiddleware(c.AdminToken),
		Log:   transport.CreateLoggingMiddleware(logger),
		// strict rate limit for requests paying invoices
		StrictRateLimit: transport.CreateRateLimitMiddleware(c.StrictRateLimit, c.BurstRateLimit),
		Idempotency:     idempotency.Middleware(idempotencyStore, time.Duration(c.IdempotencyTTL)*time.Second),
		Cache:           cacheClient.Middleware(),
	})

	var backgroundWg sync.WaitGroup
	backGroundCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	//Start webhook subscription
	if svc.Config.WebhookUrl != "" {
		backgroundWg.Add(1)
		go func() {
			svc.StartWebhookSubscription(backGroundCtx)
			svc.Logger.Info("Webhook routine done")
			backgroundWg.Done()
		}()
	}
	//Start rabbit publisher
	if rabbitmqClient != nil {
		backgroundWg.Add(1)
		go func() {
			err := rabbitmqClient.StartPublishEvents(backGroundCtx, svc.SubscribeEvents)
			if err != nil && backGroundCtx.Err() == nil {
				svc.Logger.Error(err)
				sentry.CaptureException(err)
			}

			svc.Logger.Info("Rabbit event publisher done")
			backgroundWg.Done()
		}()
	}

	//Start Prometheus server if necessary
	var echoPrometheus *echo.Echo
	if svc.Config.EnablePrometheus {
		echoPrometheus = transport.NewPrometheusEcho(logger, e)
		go func() {
			echoPrometheus.Logger.Infof("Starting prometheus on port %d", c.PrometheusPort)
			if err := echoPrometheus.Start(fmt.Sprintf(":%d", c.PrometheusPort)); err != nil && err != http.ErrServerClosed {
				echoPrometheus.Logger.Fatal(err)
			}
		}()
	}

	// Start server
	go func() {
		if err := e.Start(fmt.Sprintf(":%v", c.Port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-backGroundCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	if echoPrometheus != nil {
		if err := echoPrometheus.Shutdown(ctx); err != nil {
			e.Logger.Fatal(err)
		}
	}
	//Wait for graceful shutdown of background routines
	backgroundWg.Wait()
	svc.Logger.Info("kychub exiting gracefully. Goodbye.")
}

func newProofVerifier(c *service.Config) (zkp.ProofVerifier, error) {
	switch c.ProofVerifier {
	case kycommon.ProofVerifierGroth16:
		vk, err := zkp.LoadVerifyingKey(c.VerificationKeyPath)
		if err != nil {
			return nil, err
		}
		if vk.NPublic() > c.MaxPublicInputs {
			return nil, fmt.Errorf("verifying key expects %d public inputs, MAX_PUBLIC_INPUTS is %d", vk.NPublic(), c.MaxPublicInputs)
		}
		return zkp.NewCachedVerifier(zkp.NewGroth16Verifier(vk), c.ProofCacheSize)
	// development only
	case kycommon.ProofVerifierAccept:
		return zkp.AcceptAll, nil
	case kycommon.ProofVerifierReject:
		return zkp.RejectAll, nil
	default:
		return nil, fmt.Errorf("unknown proof verifier %q, expected groth16, accept or reject", c.ProofVerifier)
	}
}

// newIdempotencyStore shares keys between instances through redis when
// REDIS_URL is set. The memory store only protects a single instance.
func newIdempotencyStore(ctx context.Context, c *service.Config) (idempotency.Store, error) {
	if c.RedisUrl == "" {
		return idempotency.NewMemoryStore(10000)
	}
	client, err := idempotency.DialRedis(ctx, c.RedisUrl)
	if err != nil {
		return nil, err
	}
	return idempotency.NewRedisStore(client), nil
}
