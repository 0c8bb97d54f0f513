package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/subrelay/backend/internal/subtitle/tokenize"
	"github.com/subrelay/backend/internal/watcher"
)

func newWatchCommand(a *app) *cobra.Command {
	var (
		flags       jobFlags
		inDir       string
		outDir      string
		concurrency int
		settle      time.Duration
		backfill    bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Translate every .srt file that appears in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(flags.override); err != nil {
				return err
			}
			defer a.close()

			job, err := flags.job()
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = inDir
			}

			japanese := tokenize.NewMorphological()
			service, err := a.newService(nil, japanese)
			if err != nil {
				return err
			}
			ft, err := watcher.NewFileTranslator(service, outDir, job, a.logger)
			if err != nil {
				return err
			}

			w, err := watcher.New(watcher.Options{
				Dir:           inDir,
				Settle:        settle,
				MaxConcurrent: concurrency,
				Backfill:      backfill,
				Skip:          ft.IsOutput,
				Logger:        a.logger,
			}, ft.Handle)
			if err != nil {
				return err
			}
			defer w.Close()

			a.logger.Info("watch started",
				zap.String("in", inDir),
				zap.String("out", outDir),
				zap.String("language", job.Language),
				zap.String("engine", a.cfg.Translation.Engine),
			)
			if err := w.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inDir, "in", ".", "Directory to watch")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory for translations (default: the watched directory)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "Files translated at the same time")
	cmd.Flags().DurationVar(&settle, "settle", 500*time.Millisecond, "Wait this long after the last write before translating")
	cmd.Flags().BoolVar(&backfill, "backfill", false, "Also translate .srt files already in the directory")
	flags.register(cmd)
	return cmd
}
