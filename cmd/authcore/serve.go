// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/holomush/authcore/internal/api"
	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/internal/logging"
	"github.com/holomush/authcore/internal/observability"
)

const serviceName = "authcore"

// serveOptions holds serve flags that live outside the config file.
type serveOptions struct {
	admin adminParams
	out   io.Writer
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the authcore HTTP API and, when metrics.addr is set, the
metrics and health check listener. Settings come from defaults, the
--config file, flags and the DATABASE_URL / AUTHCORE_TOKEN_SECRET
environment variables. With --admin-email an administrator holding only
ADMIN is created at startup unless the email is already registered.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.admin.requested() {
				if err := opts.admin.validate(); err != nil {
					return err
				}
			}
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := logging.SetDefault(logging.Options{
				Service: serviceName,
				Version: version,
				Format:  cfg.Log.Format,
				Level:   cfg.Log.Level,
				Writer:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts.out = cmd.OutOrStdout()
			srv, err := newServer(ctx, cfg, logger, opts)
			if err != nil {
				return err
			}
			cmd.Printf("authcore listening on %s\n", srv.Addr())
			return srv.Run(ctx)
		},
	}

	config.RegisterFlags(cmd.Flags())
	registerAdminFlags(cmd.Flags(), &opts.admin)
	return cmd
}

// server wires the services to the API and observability listeners.
type server struct {
	cfg      *config.Config
	logger   *slog.Logger
	backend  *backend
	http     *http.Server
	listener net.Listener
	obs      *observability.Server
}

// newServer opens the backend, creates the requested administrator and binds
// the API listener. Nothing is served until Run.
func newServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts serveOptions) (*server, error) {
	be, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if opts.admin.requested() {
		out := opts.out
		if out == nil {
			out = io.Discard
		}
		if err := bootstrapAdmin(ctx, out, be, auth.NewArgon2idHasher(), opts.admin); err != nil {
			be.close()
			return nil, err
		}
	}
	srv, err := assemble(cfg, logger, be)
	if err != nil {
		be.close()
		return nil, err
	}
	return srv, nil
}

func assemble(cfg *config.Config, logger *slog.Logger, be *backend) (*server, error) {
	tokens, err := auth.NewTokenService([]byte(cfg.Token.Secret), cfg.Token.TTL, auth.WithIssuer(cfg.Token.Issuer))
	if err != nil {
		return nil, err
	}
	authSvc, err := auth.NewServiceWithLogger(be.accounts, be.roles, auth.NewArgon2idHasher(), tokens, logger)
	if err != nil {
		return nil, err
	}
	directory, err := auth.NewDirectoryServiceWithLogger(be.accounts, be.roles, logger)
	if err != nil {
		return nil, err
	}

	var obs *observability.Server
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obs = observability.NewServer(cfg.Metrics.Addr, be.ready, logger)
		obs.RegisterRoleCache(be.roles)
		metrics = obs.Metrics()
	}

	handler, err := api.NewHandler(authSvc, directory,
		api.WithLogger(logger),
		api.WithMetrics(metrics),
		api.WithAllowedOrigins(cfg.HTTP.AllowedOrigins...),
	)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return nil, oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	return &server{
		cfg:      cfg,
		logger:   logger,
		backend:  be,
		listener: listener,
		obs:      obs,
		http: &http.Server{
			Handler:           handler.Routes(),
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
	}, nil
}

// Addr returns the bound API address.
func (s *server) Addr() string {
	return s.listener.Addr().String()
}

// Run serves until ctx is canceled or a listener fails, then shuts both
// listeners down within the configured timeout and closes the backend.
func (s *server) Run(ctx context.Context) error {
	defer s.backend.close()

	var obsErrs <-chan error
	if s.obs != nil {
		errs, err := s.obs.Start()
		if err != nil {
			//nolint:errcheck // start error takes precedence
			s.listener.Close()
			return err
		}
		obsErrs = errs
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return oops.Code("HTTP_SERVE_FAILED").Wrap(err)
		}
		return nil
	})

	if obsErrs != nil {
		g.Go(func() error {
			for err := range obsErrs {
				return oops.Code("OBSERVABILITY_SERVE_FAILED").Wrap(err)
			}
			return nil
		})
	}

	s.logger.Info("authcore started", "addr", s.Addr(), "store", s.cfg.Store.Driver)

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.HTTP.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, oops.With("operation", "shutdown http server").Wrap(err))
		}
		if s.obs != nil {
			if err := s.obs.Stop(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("shutdown complete")
	return nil
}
