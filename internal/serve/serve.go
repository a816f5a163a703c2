package serve

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/network"
	supporthttp "github.com/stellar/go-stellar-sdk/support/http"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/stellar-anchor-service/anchor/internal/anchor"
	"github.com/stellar-anchor-service/anchor/internal/data"
	"github.com/stellar-anchor-service/anchor/internal/monitor"
	"github.com/stellar-anchor-service/anchor/internal/serve/httphandler"
	"github.com/stellar-anchor-service/anchor/internal/serve/middleware"
	"github.com/stellar-anchor-service/anchor/internal/store"
)

const ServiceID = "anchor"

type HTTPServerInterface interface {
	Run(conf supporthttp.Config)
}

type HTTPServer struct{}

func (h *HTTPServer) Run(conf supporthttp.Config) {
	supporthttp.Run(conf)
}

// ServeOptions is the full configuration surface of §6.3, plus the ambient
// fields (port, version, monitoring) that sit outside the spec's domain
// model. SetupDependencies turns this into the long-lived collaborators the
// §9 "State shared across handlers" decision calls for.
type ServeOptions struct {
	Environment string
	GitCommit   string
	Version     string

	Port              int
	Domain            string
	HorizonURL        string
	NetworkPassphrase string

	SigningKey *keypair.Full
	JWTSecret  string

	CorsAllowedOrigins []string
	InteractiveBaseURL string

	Assets        data.AssetSet
	Documentation *anchor.DocumentationBlock

	MonitorService monitor.MonitorServiceInterface
	// Events is the lifecycle-event registry transfers are published to
	// (§4.6). Left nil, TransferEngine falls back to an empty registry with
	// no subscribers.
	Events *anchor.HookRegistry

	horizonClient  horizonclient.ClientInterface
	jwtManager     *anchor.JWTManager
	nonceStore     *store.MemoryNonceStore
	transferStore  store.TransferStore
	authIssuer     *anchor.AuthIssuer
	transferEngine *anchor.TransferEngine
	publisher      *anchor.Publisher
	stopSweeper    func()
}

// SetupDependencies constructs every collaborator from the validated
// configuration. It is the one place state is wired; handlers never reach
// back into it.
func (opts *ServeOptions) SetupDependencies() error {
	jwtManager, err := anchor.NewJWTManager(opts.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating JWT manager: %w", err)
	}
	opts.jwtManager = jwtManager

	opts.horizonClient = &horizonclient.Client{HorizonURL: opts.HorizonURL}
	opts.nonceStore = store.NewMemoryNonceStore(store.DefaultNonceTTL)
	opts.transferStore = store.NewMemoryTransferStore()

	opts.authIssuer = anchor.NewAuthIssuer(anchor.AuthConfig{
		Domain:            opts.Domain,
		NetworkPassphrase: opts.NetworkPassphrase,
		SigningKey:        opts.SigningKey,
		HorizonClient:     opts.horizonClient,
		NonceStore:        opts.nonceStore,
		JWT:               jwtManager,
		MonitorService:    opts.MonitorService,
	})

	opts.transferEngine = anchor.NewTransferEngine(anchor.TransferEngineConfig{
		Domain:             opts.Domain,
		InteractiveBaseURL: opts.InteractiveBaseURL,
		SigningAccount:     opts.SigningKey.Address(),
		Assets:             opts.Assets,
		Store:              opts.transferStore,
		Events:             opts.Events,
		MonitorService:     opts.MonitorService,
	})

	opts.publisher = anchor.NewPublisher(anchor.PublisherConfig{
		Domain:            opts.Domain,
		SigningPublicKey:  opts.SigningKey.Address(),
		NetworkPassphrase: opts.NetworkPassphrase,
		IsProduction:      opts.NetworkPassphrase == network.PublicNetworkPassphrase,
		Documentation:     opts.Documentation,
		Assets:            opts.Assets,
		Mounts:            anchor.MountSet{SEP10: true, SEP24: true, SEP6: true},
	})

	opts.stopSweeper = opts.nonceStore.StartSweeper(context.Background(), store.DefaultNonceTTL)

	return nil
}

// Validate checks the §6.3 configuration surface before any dependency is
// constructed; the process must not begin accepting requests until this
// passes.
func (opts *ServeOptions) Validate() error {
	if opts.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	if opts.SigningKey == nil {
		return fmt.Errorf("secret_key is required")
	}
	if len(opts.JWTSecret) < anchor.MinJWTSecretLength {
		return fmt.Errorf("jwt_secret must be at least %d octets", anchor.MinJWTSecretLength)
	}
	if opts.NetworkPassphrase == "" {
		return fmt.Errorf("network is required")
	}
	if opts.Assets.Len() == 0 {
		return fmt.Errorf("assets must declare at least one asset")
	}
	if opts.InteractiveBaseURL == "" {
		return fmt.Errorf("interactive.url is required")
	}
	return nil
}

func Serve(opts ServeOptions, httpServer HTTPServerInterface) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	if err := opts.SetupDependencies(); err != nil {
		return fmt.Errorf("starting dependencies: %w", err)
	}

	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := supporthttp.Config{
		ListenAddr:          listenAddr,
		Handler:             handleHTTP(opts),
		TCPKeepAlive:        time.Minute * 3,
		ShutdownGracePeriod: time.Second * 30,
		ReadTimeout:         time.Second * 5,
		WriteTimeout:        time.Second * 35,
		IdleTimeout:         time.Minute * 2,
		OnStarting: func() {
			log.Info("Starting Anchor Server")
			log.Infof("Listening on %s", listenAddr)
		},
		OnStopping: func() {
			if opts.stopSweeper != nil {
				opts.stopSweeper()
			}
			log.Info("Stopping Anchor Server")
		},
	}
	httpServer.Run(serverConfig)
	return nil
}

const (
	rateLimitPer20Seconds = 40
	rateLimitWindow       = 20 * time.Second
)

// handleHTTP builds the router as five independently mountable groups
// (§4.5): discovery, authentication, SEP-24, SEP-6, and the ambient /health
// endpoint (metrics are served on a separate listener, see serve_metrics.go).
// The bearer-token guard gates every transfer-engine operation except the two
// /info reads, the /interactive redirect, /interactive/complete, and the
// /transaction/more_info status page.
func handleHTTP(o ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	mux.Use(middleware.CorsMiddleware(o.CorsAllowedOrigins))
	mux.Use(httprate.Limit(
		rateLimitPer20Seconds,
		rateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
	))
	mux.Use(middleware.RequestIDMiddleware)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.RecoverHandler)
	mux.Use(middleware.MetricsRequestHandler(o.MonitorService))
	mux.Use(chimiddleware.CleanPath)
	mux.Use(chimiddleware.Compress(5))

	mux.Get("/health", httphandler.HealthHandler{
		ServiceID: ServiceID,
		Version:   o.Version,
		ReleaseID: o.GitCommit,
	}.ServeHTTP)

	// Discovery mount.
	mux.Get("/.well-known/stellar.toml", httphandler.DiscoveryHandler{Publisher: o.publisher}.ServeHTTP)

	// Authentication mount (SEP-10).
	authHandler := httphandler.AuthHandler{Issuer: o.authIssuer}
	mux.Get("/auth", authHandler.GetChallenge)
	mux.Post("/auth", authHandler.PostChallenge)

	bearerAuth := middleware.BearerAuthMiddleware(o.jwtManager)

	// SEP-24 mount.
	sep24Handler := httphandler.SEP24Handler{Engine: o.transferEngine}
	mux.Get("/sep24/info", sep24Handler.GetInfo)
	mux.Get("/interactive", sep24Handler.GetInteractiveRedirect)
	mux.Post("/interactive/complete", sep24Handler.PostInteractiveComplete)
	mux.Get("/transaction/more_info", sep24Handler.GetMoreInfo)
	mux.Group(func(r chi.Router) {
		r.Use(bearerAuth)
		r.Post("/sep24/transactions/deposit/interactive", sep24Handler.PostDepositInteractive)
		r.Post("/sep24/transactions/withdraw/interactive", sep24Handler.PostWithdrawInteractive)
		r.Get("/sep24/transaction", sep24Handler.GetTransaction)
		r.Get("/sep24/transactions", sep24Handler.GetTransactions)
	})

	// SEP-6 mount.
	sep6Handler := httphandler.SEP6Handler{Engine: o.transferEngine}
	mux.Get("/sep6/info", sep6Handler.GetInfo)
	mux.Group(func(r chi.Router) {
		r.Use(bearerAuth)
		r.Get("/sep6/deposit", sep6Handler.GetDeposit)
		r.Get("/sep6/withdraw", sep6Handler.GetWithdraw)
	})

	return mux
}
