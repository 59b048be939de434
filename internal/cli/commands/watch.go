package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/sqlcst/internal/cli/config"
	"github.com/leapstack-labs/sqlcst/internal/cli/output"
	"github.com/leapstack-labs/sqlcst/internal/workspace"
	"github.com/leapstack-labs/sqlcst/pkg/diagnostic"
	"github.com/spf13/cobra"
)

// watchDebounce coalesces the bursts of events editors produce on save.
const watchDebounce = 100 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Reparse a file incrementally every time it is saved",
		Long: `Watch a SQL file and reparse it each time it changes, reusing the
previous tree. Every version prints its diagnostics and reuse statistics.

Press Ctrl+C to stop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0])
		},
	}
	return cmd
}

func runWatch(cmd *cobra.Command, name string) error {
	ctx := cmd.Context()
	logger := config.GetLogger(ctx)
	r := output.FromContext(ctx)

	path, err := filepath.Abs(name)
	if err != nil {
		return err
	}
	p, err := newParser(cmd)
	if err != nil {
		return err
	}
	store := workspace.NewStore(p, logger)

	src, err := readSource(cmd, path)
	if err != nil {
		return err
	}
	pctx, cancel := parseContext(ctx)
	doc, err := store.Open(pctx, path, src, 1)
	cancel()
	if err != nil {
		return err
	}
	reportVersion(r, doc)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace the file on save, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	_, _ = fmt.Fprintf(r.ErrWriter(), "Watching %s (Ctrl+C to stop)\n", name)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = time.After(watchDebounce)

		case <-pending:
			pending = nil
			doc, err = reloadDocument(ctx, cmd, store, doc)
			if err != nil {
				logger.Warn("reload failed", "file", path, "error", err)
				continue
			}
			reportVersion(r, doc)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

// reloadDocument reads the file again and applies it to the store as a
// whole-document change.
func reloadDocument(ctx context.Context, cmd *cobra.Command, store *workspace.Store, doc *workspace.Document) (*workspace.Document, error) {
	src, err := readSource(cmd, doc.URI)
	if err != nil {
		return doc, err
	}
	if string(src) == string(doc.Content) {
		return doc, nil
	}
	pctx, cancel := parseContext(ctx)
	defer cancel()
	return store.Change(pctx, doc.URI, doc.Version+1, []workspace.Change{{Text: string(src)}})
}

func reportVersion(r *output.Renderer, doc *workspace.Document) {
	styles := r.Styles()
	st := doc.Tree.Stats()
	diags := diagnostic.Collect(doc.Tree, doc.Content)

	status := styles.Success.Render("ok")
	if len(diags) > 0 {
		status = styles.Error.Render(fmt.Sprintf("%d error(s)", len(diags)))
	}
	r.Println(fmt.Sprintf("%s version %d: %s %s",
		styles.Muted.Render(time.Now().Format(time.TimeOnly)),
		doc.Version,
		status,
		styles.Muted.Render(fmt.Sprintf("(scanned %d tokens, reused %d nodes / %d bytes)",
			st.TokensScanned, st.NodesReused, st.BytesReused))))
	for _, d := range diags {
		r.Println("  " + d.String())
	}
}
