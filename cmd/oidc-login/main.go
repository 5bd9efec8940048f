package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	goOIDC "github.com/MrEthical07/goOIDC"
	"github.com/MrEthical07/goOIDC/httpapi"
	"github.com/MrEthical07/goOIDC/internal/logger"
	"github.com/MrEthical07/goOIDC/metrics/export/prometheus"
	"github.com/MrEthical07/goOIDC/transport"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type options struct {
	apiServer  string
	rendezvous string
	store      string
	storePath  string
	redisAddr  string
	interval   time.Duration
	timeout    time.Duration
	logLevel   string
	auditFile  string
}

func main() {
	_ = godotenv.Load(".env")

	opts := options{
		apiServer:  envOr("GOIDC_API_SERVER", ""),
		rendezvous: envOr("GOIDC_RENDEZVOUS_SERVER", ""),
		store:      envOr("GOIDC_STORE", "file"),
		storePath:  envOr("GOIDC_STORE_PATH", defaultStorePath()),
		redisAddr:  envOr("REDIS_ADDR", "127.0.0.1:6379"),
		interval:   envDuration("GOIDC_POLL_INTERVAL", time.Second),
		timeout:    envDuration("GOIDC_POLL_TIMEOUT", 180*time.Second),
		logLevel:   envOr("GOIDC_LOG_LEVEL", "warn"),
		auditFile:  envOr("GOIDC_AUDIT_FILE", ""),
	}

	root := &cobra.Command{
		Use:           "oidc-login",
		Short:         "Log in to a rendezvous API server through its OIDC provider",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.apiServer, "api-server", opts.apiServer, "API server origin (env GOIDC_API_SERVER)")
	pf.StringVar(&opts.rendezvous, "rendezvous-server", opts.rendezvous, "rendezvous server host[:port]; the API server is derived from it (env GOIDC_RENDEZVOUS_SERVER)")
	pf.StringVar(&opts.store, "store", opts.store, "settings store: memory|file|redis (env GOIDC_STORE)")
	pf.StringVar(&opts.storePath, "store-path", opts.storePath, "settings file for --store=file (env GOIDC_STORE_PATH)")
	pf.StringVar(&opts.redisAddr, "redis-addr", opts.redisAddr, "redis address for --store=redis (env REDIS_ADDR)")
	pf.DurationVar(&opts.interval, "interval", opts.interval, "poll interval (env GOIDC_POLL_INTERVAL)")
	pf.DurationVar(&opts.timeout, "timeout", opts.timeout, "overall polling budget (env GOIDC_POLL_TIMEOUT)")
	pf.StringVar(&opts.logLevel, "log-level", opts.logLevel, "debug|info|warn|error (env GOIDC_LOG_LEVEL)")
	pf.StringVar(&opts.auditFile, "audit-file", opts.auditFile, "append audit events as JSON lines to this file (env GOIDC_AUDIT_FILE)")

	root.AddCommand(loginCmd(&opts), whoamiCmd(&opts), logoutCmd(&opts), serveCmd(&opts))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loginCmd(opts *options) *cobra.Command {
	var (
		op       string
		id       string
		uuid     string
		remember bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start a login flow and wait for it to finish",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if op == "" || id == "" {
				return errors.New("--op and --id are required")
			}
			rt, err := newRuntime(opts)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := rt.engine.StartFlow(op, id, uuid, remember); err != nil {
				return err
			}
			return watch(ctx, rt.engine, cmd)
		},
	}
	cmd.Flags().StringVar(&op, "op", envOr("GOIDC_OP", ""), "provider operation, for example the OIDC provider name (env GOIDC_OP)")
	cmd.Flags().StringVar(&id, "id", envOr("GOIDC_DEVICE_ID", ""), "device id (env GOIDC_DEVICE_ID)")
	cmd.Flags().StringVar(&uuid, "uuid", envOr("GOIDC_DEVICE_UUID", ""), "device uuid (env GOIDC_DEVICE_UUID)")
	cmd.Flags().BoolVar(&remember, "remember", false, "store the access token and user for later runs")
	return cmd
}

// watch prints progress until the flow ends. An interrupt cancels the flow.
func watch(ctx context.Context, e *goOIDC.Engine, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var printedURL bool
	for {
		// Read Running before the snapshot: once the task has exited the
		// snapshot taken after it is final.
		running := e.Running()
		status := e.Status()
		if !printedURL && status.AuthorizationURL != nil {
			fmt.Fprintf(out, "Open this URL to continue:\n\n  %s\n\n", *status.AuthorizationURL)
			printedURL = true
		}
		if !running {
			return report(cmd, status)
		}

		select {
		case <-ctx.Done():
			e.CancelFlow()
			waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = e.Wait(waitCtx)
			cancel()
			return errors.New("login cancelled")
		case <-ticker.C:
		}
	}
}

func report(cmd *cobra.Command, status goOIDC.FlowStatus) error {
	switch {
	case status.LoggedIn():
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", status.Result.User.Name, status.Result.User.Status)
		return nil
	case status.Failed():
		return fmt.Errorf("login failed: %s", status.FailureMessage)
	default:
		return errors.New("login ended without a result")
	}
}

func whoamiCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the remembered user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(opts)
			if err != nil {
				return err
			}
			defer rt.close()

			creds, err := rt.engine.StoredCredentials(cmd.Context())
			if errors.Is(err, goOIDC.ErrNoStoredCredentials) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", creds.User.Name, creds.User.Status)
			return nil
		},
	}
}

func logoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the remembered access token and user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(opts)
			if err != nil {
				return err
			}
			defer rt.close()
			return rt.engine.ForgetCredentials(cmd.Context())
		},
	}
}

func serveCmd(opts *options) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the login API and metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(opts)
			if err != nil {
				return err
			}
			defer rt.close()

			r := chi.NewRouter()
			r.Handle("/metrics", prometheus.NewPrometheusExporter(rt.engine).Handler())
			httpapi.New(rt.engine, rt.logger).Register(r)

			srv := &http.Server{
				Addr:              listen,
				Handler:           r,
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				rt.logger.Info("listening", zap.String("addr", listen))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&listen, "listen", envOr("GOIDC_LISTEN", "127.0.0.1:8421"), "listen address (env GOIDC_LISTEN)")
	return cmd
}

// runtime bundles an engine with the resources that back it.
type runtime struct {
	engine  *goOIDC.Engine
	logger  *zap.Logger
	closers []func()
}

func newRuntime(opts *options) (*runtime, error) {
	apiServer := transport.ResolveAPIServer(opts.apiServer, opts.rendezvous, "")
	if apiServer == "" {
		return nil, errors.New("set --api-server or --rendezvous-server")
	}

	log := logger.New(logger.Config{
		Env:         "dev",
		Level:       opts.logLevel,
		ServiceName: "oidc-login",
	})
	rt := &runtime{logger: log}

	st, closeStore, err := openStore(opts)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, closeStore)

	cfg := goOIDC.DefaultConfig()
	cfg.APIServer = apiServer
	cfg.Polling.Interval = opts.interval
	cfg.Polling.Timeout = opts.timeout

	b := goOIDC.New().
		WithConfig(cfg).
		WithSettingsStore(st).
		WithLogger(log)

	if opts.auditFile != "" {
		f, err := os.OpenFile(opts.auditFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("open audit file: %w", err)
		}
		rt.closers = append(rt.closers, func() { _ = f.Close() })
		cfg.Audit.Enabled = true
		b = b.WithConfig(cfg).WithAuditSink(goOIDC.NewMultiSink(goOIDC.NewJSONWriterSink(f), goOIDC.NewZapSink(log)))
	}

	e, err := b.Build()
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.engine = e
	return rt, nil
}

func (rt *runtime) close() {
	if rt.engine != nil {
		rt.engine.Close()
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	_ = rt.logger.Sync()
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
