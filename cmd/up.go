package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/bridge"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/metrics"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/sandbox"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/terminal"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tui"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/workspace"
)

var upCmd = &cobra.Command{
	Use:   "up <id>",
	Short: "Boot a workspace in a sandbox",
	Long: `Boots a sandbox for a workspace: mounts its files, installs dependencies
and starts the development server. Runs until interrupted.

A workspace that was never saved is created from --template first.
With --sync-dir the tree is exported to a directory and edits made there
are saved to the store and written into the running sandbox.`,
	Args: cobra.ExactArgs(1),
	RunE: runUp,
}

var (
	upTemplate    string
	upSyncDir     string
	upNoTUI       bool
	upMetricsAddr string
)

func init() {
	upCmd.Flags().StringVarP(&upTemplate, "template", "t", "", "Template for a workspace that does not exist yet")
	upCmd.Flags().StringVar(&upSyncDir, "sync-dir", "", "Directory to export the workspace to and watch for edits")
	upCmd.Flags().BoolVar(&upNoTUI, "no-tui", false, "Print sandbox output instead of the interactive view")
	upCmd.Flags().StringVar(&upMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides [metrics] addr)")
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	interactive := !upNoTUI && isatty.IsTerminal(os.Stdout.Fd())
	return upWorkspace(cmd.Context(), cmd.OutOrStdout(), args[0], upTemplate, interactive)
}

// upWorkspace runs workspace id in a sandbox until ctx is cancelled or the
// process is interrupted.
func upWorkspace(ctx context.Context, out io.Writer, id, templateKey string, interactive bool) error {
	if err := config.ValidateWorkspaceID(id); err != nil {
		return errors.ValidationError(err.Error())
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Console output would tear through the interactive view.
	var notifier workspace.Notifier = workspace.ConsoleNotifier{}
	if interactive {
		notifier = nil
	}
	session, err := app.Default.OpenSession(ctx, id, templateKey, notifier)
	if err != nil {
		return err
	}

	addr := upMetricsAddr
	if addr == "" {
		addr = cfg().Metrics.Addr
	}
	if addr != "" {
		stopMetrics, err := serveMetrics(addr)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	if interactive {
		err = upInteractive(ctx, session)
	} else {
		err = upPlain(ctx, out, session)
	}

	if report := session.SaveAll(context.Background()); len(report.Failed) > 0 {
		logWarning("%v", report.Err())
	}
	return err
}

// upPlain streams sandbox output to out.
func upPlain(ctx context.Context, out io.Writer, session *workspace.Session) error {
	sink := terminal.NewWriterSink(out)
	ctrl, err := app.Default.Controller(session.ID(), sink)
	if err != nil {
		return errors.ConfigError("failed to create sandbox", err)
	}
	session.AttachSandbox(ctrl)
	defer teardown(ctrl)

	if err := ctrl.Start(ctx, session.Tree()); err != nil {
		return err
	}

	if upSyncDir != "" {
		stopSync, err := startSync(ctx, session, upSyncDir)
		if err != nil {
			return err
		}
		defer stopSync()
	}

	st, err := ctrl.WaitReady(ctx)
	if err != nil {
		if stderrors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	sink.Write(fmt.Sprintf("\nDevelopment server is running at: %s\n", st.ServerURL))
	<-ctx.Done()
	return nil
}

// upInteractive shows the boot view until the user quits.
func upInteractive(ctx context.Context, session *workspace.Session) error {
	var ctrl *sandbox.Controller
	model := tui.NewProgress(tui.ProgressOptions{
		Workspace: session.ID(),
		Start: func() error {
			return ctrl.Start(ctx, session.Tree())
		},
		Restart: func() error {
			return ctrl.ForceRestart(ctx, session.Tree())
		},
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	var err error
	ctrl, err = app.Default.Controller(session.ID(), tui.NewProgramSink(p))
	if err != nil {
		return errors.ConfigError("failed to create sandbox", err)
	}
	session.AttachSandbox(ctrl)
	defer teardown(ctrl)

	cancel := tui.Follow(p, ctrl)
	defer cancel()

	if upSyncDir != "" {
		stopSync, err := startSync(ctx, session, upSyncDir)
		if err != nil {
			return err
		}
		defer stopSync()
	}

	if _, err := p.Run(); err != nil && !stderrors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("interactive view: %w", err)
	}
	return nil
}

func teardown(ctrl *sandbox.Controller) {
	if err := ctrl.Teardown(); err != nil {
		logging.Warn("failed to tear down sandbox", "error", err)
	}
}

// startSync exports the tree to dir and watches it until ctx is done or
// the returned func is called. The func waits for the watcher to stop.
func startSync(ctx context.Context, session *workspace.Session, dir string) (func(), error) {
	b := bridge.New(dir, session)
	n, err := b.Export()
	if err != nil {
		return nil, fmt.Errorf("failed to export to %s: %w", dir, err)
	}
	logging.Info("exported workspace", "workspace", session.ID(), "dir", dir, "files", n)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := b.Run(ctx); err != nil {
			logging.Error("sync directory watcher stopped", "dir", dir, "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}, nil
}

// serveMetrics serves /metrics on addr until the returned func is called.
func serveMetrics(addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logging.Debug("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
