// Package app wires Tagzilla together from a Config: the record store, the
// session manager, the OTP verifier and its delivery channel, picture
// storage and the auth service. It runs the HTTP API, the periodic
// maintenance sweep and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/tagzilla/internal/auth"
	"github.com/dmitrijs2005/tagzilla/internal/config"
	"github.com/dmitrijs2005/tagzilla/internal/httpapi"
	"github.com/dmitrijs2005/tagzilla/internal/logging"
	"github.com/dmitrijs2005/tagzilla/internal/media"
	"github.com/dmitrijs2005/tagzilla/internal/otp"
	"github.com/dmitrijs2005/tagzilla/internal/repomanager"
	"github.com/dmitrijs2005/tagzilla/internal/sessions"
	"github.com/dmitrijs2005/tagzilla/internal/store"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

// Constructor seams for external services.
var (
	newRedisClient = func(ctx context.Context, url string) (otp.RedisClient, func() error, error) {
		c, err := otp.NewRedisClient(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}
	newS3Store = func(ctx context.Context, c media.S3Config) (media.Store, error) {
		return media.NewS3Store(ctx, c)
	}
)

var _ otp.RedisClient = (*redis.Client)(nil)

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    *repomanager.RepositoryManager
	sessions *sessions.Manager
	verifier *otp.Verifier
	service  *auth.Service

	closers []func() error
}

type Option func(*App)

func WithLogger(l logging.Logger) Option {
	return func(a *App) { a.logger = l }
}

// NewApp builds the stack without opening the store.
func NewApp(ctx context.Context, c *config.Config, opts ...Option) (*App, error) {
	app := &App{config: c}
	for _, o := range opts {
		o(app)
	}
	if app.logger == nil {
		app.logger = logging.New(c.LogLevel, c.LogFormat, os.Stdout)
	}

	backend, err := store.NewBackend(c.StorageBackend, c.DatabaseDSN, c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	app.repos = repomanager.New(backend, app.logger)
	app.closers = append(app.closers, app.repos.Store().Close)

	cache, err := app.otpCache(ctx)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("otp cache init error: %w", err)
	}

	deliverer, err := app.deliverer()
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	pictures, err := app.pictureStore(ctx)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("picture store init error: %w", err)
	}

	app.sessions = sessions.NewManager(app.repos.Sessions(),
		sessions.WithTTL(c.SessionTTL),
		sessions.WithLogger(app.logger),
	)
	app.verifier = otp.NewVerifier(cache, deliverer,
		otp.WithTTL(c.OTPTTL),
		otp.WithRetention(c.OTPRetention),
		otp.WithSendLimit(c.OTPSendBurst, c.OTPSendInterval),
		otp.WithRegion(c.DefaultRegion),
		otp.WithLogger(app.logger),
	)
	app.service = auth.NewService(auth.Deps{
		Repos:    app.repos,
		Sessions: app.sessions,
		OTP:      app.verifier,
		Media:    pictures,
	}, auth.WithLogger(app.logger))

	return app, nil
}

func (app *App) otpCache(ctx context.Context) (otp.Cache, error) {
	switch app.config.OTPCache {
	case "", "memory":
		return otp.NewMemoryCache(nil), nil
	case "redis":
		client, closeFn, err := newRedisClient(ctx, app.config.RedisURL)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, closeFn)
		return otp.NewRedisCache(client), nil
	default:
		return nil, fmt.Errorf("unknown otp cache %q", app.config.OTPCache)
	}
}

func (app *App) deliverer() (otp.Deliverer, error) {
	c := app.config
	switch c.SMSProvider {
	case "", "log":
		return otp.NewLogDeliverer(app.logger), nil
	case "twilio":
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioFrom == "" {
			return nil, errors.New("twilio delivery needs account sid, auth token and sender")
		}
		return otp.NewTwilioDeliverer(c.TwilioAccountSID, c.TwilioAuthToken, c.TwilioFrom, c.TwilioBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", c.SMSProvider)
	}
}

func (app *App) pictureStore(ctx context.Context) (media.Store, error) {
	c := app.config
	switch c.PictureStore {
	case "", "local":
		return media.NewLocalStore(c.PictureDir), nil
	case "s3":
		return newS3Store(ctx, media.S3Config{
			Region:       c.S3Region,
			RootUser:     c.S3RootUser,
			RootPassword: c.S3RootPassword,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown picture store %q", c.PictureStore)
	}
}

// Service exposes the wired auth service, e.g. for the local REPL.
func (app *App) Service() *auth.Service {
	return app.service
}

// Open starts opening the store. The channel yields the outcome once.
func (app *App) Open(ctx context.Context) <-chan error {
	out := make(chan error, 1)
	ch := app.repos.Store().Open(ctx)
	go func() {
		err := <-ch
		if err != nil {
			app.logger.Error(ctx, "store open failed", "backend", app.config.StorageBackend, "error", err)
		} else {
			app.logger.Info(ctx, "store ready", "backend", app.config.StorageBackend)
		}
		out <- err
	}()
	return out
}

// Sweep runs one maintenance pass: expired sessions and stale challenges.
func (app *App) Sweep(ctx context.Context) {
	n, err := app.sessions.Sweep(ctx)
	if err != nil {
		app.logger.Warn(ctx, "session sweep failed", "error", err)
	}
	m := app.verifier.Sweep(ctx)
	app.logger.Debug(ctx, "maintenance done", "sessions_removed", n, "challenges_removed", m)
}

func (app *App) runMaintenance(ctx context.Context) {
	if app.config.MaintenanceInterval <= 0 {
		return
	}
	ticker := time.NewTicker(app.config.MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.Sweep(ctx)
		}
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func (app *App) serveHTTP(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           httpapi.NewRouter(app.service, app.logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run opens the store in the background, serves the HTTP API and blocks
// until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	stop := app.initSignalHandler(cancelFunc)
	defer stop()

	ln, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.config.HTTPAddr, err)
	}
	app.logger.Info(ctx, "Starting app...", "addr", ln.Addr().String())

	// requests answer NOT_READY until the store is open
	app.Open(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runMaintenance(ctx)
	}()

	err = app.serveHTTP(ctx, ln)
	cancelFunc()
	wg.Wait()

	app.verifier.Wait()
	app.logger.Info(ctx, "app stopped")
	return errors.Join(err, app.Close())
}

// Close releases the store and any external clients. Safe to call twice.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}
