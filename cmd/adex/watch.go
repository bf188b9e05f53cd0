package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-index files as they change",
	Long:  "Watches the project tree and incrementally re-indexes changed files. Unchanged content is skipped by the hash gate, so editor touch events are cheap.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 500*time.Millisecond, "settle time before re-indexing a burst of changes")
}

func runWatch(cmd *cobra.Command, args []string) error {
	engine, root, err := openEngine(args)
	if err != nil {
		return err
	}
	defer engine.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch every directory under root; fsnotify is not recursive.
	if err := addWatchDirs(watcher, root); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Watching %s\n", root)

	ctx := cmd.Context()
	pending := make(map[string]bool)
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		clear(pending)
		timerC = nil

		report, err := engine.IndexFiles(ctx, paths)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reindex: %v\n", err)
			return
		}
		if report.Processed > 0 {
			fmt.Fprintf(os.Stderr, "Reindexed %d file(s)\n", report.Processed)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0:
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// New directories join the watch set.
					if event.Op&fsnotify.Create != 0 && !skipWatchDir(filepath.Base(event.Name)) {
						_ = watcher.Add(event.Name)
					}
					continue
				}
				pending[event.Name] = true
			case event.Op&fsnotify.Remove != 0:
				if err := engine.Store().DeleteFile(event.Name); err == nil {
					fmt.Fprintf(os.Stderr, "Dropped %s from index\n", event.Name)
				}
				continue
			default:
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(flagDebounce)
			timerC = timer.C

		case <-timerC:
			flush()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		}
	}
}

func skipWatchDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules" ||
		name == "vendor" || name == "__pycache__"
}

func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipWatchDir(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
