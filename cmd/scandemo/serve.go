package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"scandemo/internal/auth"
	"scandemo/internal/config"
	"scandemo/internal/content"
	"scandemo/internal/decor"
	"scandemo/internal/metrics"
	"scandemo/internal/notify"
	"scandemo/internal/telemetry"
	"scandemo/internal/ui"
	"scandemo/internal/web"
)

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard and API",
		Long: `Serves the product pages, the dashboard and the JSON API the CLI talks to.
Metrics are exposed on a separate port when metrics.enabled is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, config.Current())
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().Bool("auth", false, "Require a bearer token on /scan routes")
	viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	viper.BindPFlag("auth.required", cmd.Flags().Lookup("auth"))
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, s config.Settings) error {
	store, err := storeFactory(s)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	toasts := notify.NewRecorder(0)
	svc := newService(store, s.TimeScale, m, notify.NewManagerFromConfig(toasts))

	catalog, err := content.Load()
	if err != nil {
		return err
	}

	srv, err := web.NewServer(web.Config{
		Addr:         s.ServerAddr,
		Gzip:         s.Gzip,
		AuthRequired: s.AuthRequired,
	}, web.Deps{
		Service:  svc,
		Catalog:  catalog,
		Accounts: auth.NewRegistry(0),
		Board:    decor.NewBoard(),
		Toasts:   toasts,
		Metrics:  m,
	})
	if err != nil {
		return err
	}

	if s.MetricsEnabled {
		addr := "127.0.0.1:" + strconv.Itoa(s.MetricsPort)
		if _, err := telemetry.StartMetricsServer(ctx, addr, m.Handler()); err != nil {
			slog.Warn("Failed to start metrics server", "addr", addr, "error", err)
		}
	}

	if err := srv.Start(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.GenerateLogo())
	fmt.Fprintf(cmd.OutOrStdout(), "Dashboard running at http://%s/dashboard\n", srv.Addr())

	<-ctx.Done()
	fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		slog.Error("Web server shutdown failed", "error", err)
	}
	return svc.Shutdown(shutdownCtx)
}
