package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SomeOppaiBoy/true-scale/internal/ar/sim"
	"github.com/SomeOppaiBoy/true-scale/internal/config"
	"github.com/SomeOppaiBoy/true-scale/internal/monitoring"
	"github.com/SomeOppaiBoy/true-scale/internal/replay"
	"github.com/SomeOppaiBoy/true-scale/pkg/watcher"
)

var (
	replayConfig   string
	replayImperial bool
	replayWatch    bool
	replayVerbose  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <scene.yaml>",
	Short: "Replay a scripted AR session",
	Long: `Load a scene file (trackables, hit regions and timed steps) and drive the
measurement engine through it. Every tap outcome, preview and eviction is
printed, followed by the final measurement history.

With --watch the scene is replayed again each time the file is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayConfig, "config", "c", "", "Engine config file (YAML)")
	replayCmd.Flags().BoolVar(&replayImperial, "imperial", false, "Start in imperial units")
	replayCmd.Flags().BoolVarP(&replayWatch, "watch", "w", false, "Replay again when the scene file changes")
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "Log engine diagnostics to stderr")
}

func runReplay(cmd *cobra.Command, args []string) error {
	path := args[0]

	if replayVerbose {
		monitoring.SetLogger(log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds).Printf)
	} else {
		monitoring.SetLogger(nil)
	}

	cfg := config.Default()
	if replayConfig != "" {
		loaded, err := config.Load(replayConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	out := cmd.OutOrStdout()
	if err := replayOnce(path, cfg, out); err != nil {
		if !replayWatch {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	if !replayWatch {
		return nil
	}

	fw, err := watcher.NewFileWatcher(cfg.GetTapDebounce())
	if err != nil {
		return err
	}
	defer fw.Close()

	err = fw.Watch([]string{path}, func(string) {
		fmt.Fprintf(out, "\n--- %s changed, replaying ---\n\n", path)
		if err := replayOnce(path, cfg, out); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(out, "\nWatching %s for changes (Ctrl+C to stop)\n", path)
	fw.Run(ctx)
	return nil
}

func replayOnce(path string, cfg *config.EngineConfig, out io.Writer) error {
	scene, err := sim.LoadScene(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Replaying %s (%d steps)\n", path, len(scene.Steps))
	fmt.Fprintln(out, "==========")

	report, err := replay.Run(scene, replay.Options{Config: cfg, Imperial: replayImperial, Out: out})
	if err != nil {
		return err
	}
	if report.Leaked > 0 {
		return fmt.Errorf("%d anchors still attached after dispose", report.Leaked)
	}
	return nil
}
