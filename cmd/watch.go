package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	employees "github.com/st-keller/employee-client"
	"github.com/st-keller/employee-client/logging"
	"github.com/st-keller/employee-client/tui"
)

const recentLogEntries = 200

// NewWatchCommand returns the interactive, live-updating view.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Browse employees interactively with live updates",
		Long: `Browse employees interactively. The page on display follows changes made by
other clients: a new employee shows the last page, an update or removal
refreshes the current page.`,
		RunE: watch,
		Args: cobra.NoArgs,
	}
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this host:port while watching")
	return cmd
}

func watch(cmd *cobra.Command, _ []string) error {
	metricsAddr, err := cmd.Flags().GetString("metrics-addr")
	if err != nil {
		return err
	}

	// the terminal belongs to the view; logs only go to the recent buffer
	level, err := logging.ParseLevel(viper.GetString(logLevelConf))
	if err != nil {
		return err
	}
	recent := logging.NewRecent(level, recentLogEntries)
	logger := zap.New(recent)

	// the program needs the client and the client's notifier needs the program
	var (
		progMu sync.Mutex
		prog   *tea.Program
	)
	send := func(msg tea.Msg) {
		progMu.Lock()
		defer progMu.Unlock()
		if prog != nil {
			prog.Send(msg)
		}
	}

	c, err := employees.New(clientConfig(),
		employees.WithLogger(logger),
		employees.WithNotifier(func(text string) { send(tui.NoticeMsg{Text: text}) }),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if err := c.Start(ctx); err != nil {
		return err
	}
	defer c.Stop()

	p := tea.NewProgram(tui.New(ctx, c, c.State()).WithLogs(recent),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	progMu.Lock()
	prog = p
	progMu.Unlock()

	// pages committed before Bind reach the view through Model.Init
	unbind := tui.Bind(p, c.Holder())
	defer unbind()
	recent.SetTriggerFunc(func(e logging.Entry) {
		send(tui.LogMsg{Entry: e})
	})

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run view: %w", err)
	}
	return nil
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("starting prometheus metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
