package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/daviddao/liftplan/pkg/encode"
)

const defaultDebounce = 500 * time.Millisecond

func newWatchCmd(a *app) *cobra.Command {
	var (
		domainPath, problemPath string
		debounce                time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-list applicable actions whenever the domain or problem file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s and %s (ctrl-c to stop)\n", domainPath, problemPath)
			return a.watch(ctx, domainPath, problemPath, debounce, cmd.ErrOrStderr())
		},
	}
	taskFlags(cmd, &domainPath, &problemPath, true)
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "quiet period before reloading")
	return cmd
}

// watch prints the applicable actions once, then again after every burst
// of changes to either file, until ctx is done. Load errors are reported
// to errOut and do not stop the watch.
func (a *app) watch(ctx context.Context, domainPath, problemPath string, debounce time.Duration, errOut io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files by rename, so watch the directories and
	// filter by name.
	targets := make(map[string]struct{}, 2)
	for _, p := range []string{domainPath, problemPath} {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	report := func() {
		if err := a.printApplicable(ctx, domainPath, problemPath); err != nil {
			fmt.Fprintf(errOut, "lp: watch: %v\n", err)
		}
	}
	report()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := targets[abs]; !ok {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			a.log.Debug("file changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			pending = timer.C

		case <-pending:
			pending = nil
			report()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (a *app) printApplicable(ctx context.Context, domainPath, problemPath string) error {
	t, err := a.loadTask(domainPath, problemPath)
	if err != nil {
		return err
	}
	actions, err := t.ApplicableActions(ctx)
	if err != nil {
		return err
	}
	lines := encode.Actions(actions, t.Problem().Objects)
	if a.cfg.JSON {
		a.printJSON(map[string]interface{}{
			"time":       time.Now().UTC().Format(time.RFC3339),
			"applicable": nonNil(lines),
		})
		return nil
	}
	fmt.Fprintf(a.out, "--- %s: %d applicable ---\n", time.Now().Format("15:04:05"), len(lines))
	a.printLines(lines)
	return nil
}
