package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/fleet-optimizer/internal/server"
	"github.com/iwvelando/fleet-optimizer/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		serverConfigPath string
		address          string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyses over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			const op = "main.serve"
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sc, err := server.LoadConfig(serverConfigPath)
			if err != nil {
				return err
			}
			if address != "" {
				sc.Address = address
			}

			a, err := opts.load(ctx, cmd, loadOptions{store: true, logging: &sc.Logging})
			if err != nil {
				return err
			}
			defer a.close()

			srv := &http.Server{
				Addr: sc.Address,
				Handler: server.NewHandler(a.logger, a.conf, server.Options{
					MaxUploadSize: sc.UploadSizeBytes(),
					Version:       version,
					Timeout:       sc.Timeout(),
					Store:         a.store,
				}),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening",
					zap.String("op", op),
					zap.String("address", sc.Address),
					zap.Int64("maxUploadSize", sc.UploadSizeBytes()),
					zap.Duration("requestTimeout", sc.Timeout()),
					zap.Bool("archive", a.store != nil),
				)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}

			a.logger.Info("shutting down", zap.String("op", op))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), sc.ShutdownGrace())
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&address, "address", "", "listen address override")
	return cmd
}
