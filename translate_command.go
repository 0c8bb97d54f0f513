package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/subrelay/backend/internal/config"
	"github.com/subrelay/backend/internal/subtitle/tokenize"
	"github.com/subrelay/backend/internal/subtitle/translate"
)

// jobFlags are shared by translate and watch.
type jobFlags struct {
	language string
	engine   string
	preset   string
	prompt   string
	budget   int
}

func (f *jobFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.language, "language", "l", "", "Target language, as a name or code (required)")
	cmd.Flags().StringVar(&f.engine, "engine", "", "Translation engine (openai, gemini, deepl, mock)")
	cmd.Flags().StringVar(&f.preset, "preset", "", "Prompt preset ("+strings.Join(translate.BuiltinPresets(), ", ")+")")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "Extra instructions for the custom preset")
	cmd.Flags().IntVar(&f.budget, "budget", 0, "Model units per group (overrides MAX_TOKENS_IN_GROUP)")
	_ = cmd.MarkFlagRequired("language")
}

func (f *jobFlags) override(c *config.Config) {
	if f.engine != "" {
		c.Translation.Engine = f.engine
	}
	if f.budget > 0 {
		c.Translation.Budget = f.budget
	}
}

func (f *jobFlags) job() (translate.Job, error) {
	if !translate.IsBuiltinPreset(f.preset) {
		return translate.Job{}, fmt.Errorf("unknown preset %q", f.preset)
	}
	preset := f.preset
	if preset == "" && f.prompt != "" {
		preset = translate.PresetCustom
	}
	return translate.Job{Language: f.language, Preset: preset, CustomPrompt: f.prompt}, nil
}

func newTranslateCommand(a *app) *cobra.Command {
	var (
		flags  jobFlags
		input  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate one SRT file",
		Example: "  subrelay translate -i episode.srt -l Japanese -o episode.ja.srt\n" +
			"  cat episode.srt | subrelay translate -i - -l es --engine gemini --preset anime",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(flags.override); err != nil {
				return err
			}
			defer a.close()

			job, err := flags.job()
			if err != nil {
				return err
			}
			content, err := readInput(cmd, input)
			if err != nil {
				return err
			}
			job.Content = content

			service, err := a.newService(nil, tokenize.NewMorphological())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var file *os.File
			if output != "" && output != "-" {
				file, err = os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer file.Close()
				out = file
			}

			bw := bufio.NewWriter(out)
			summary, err := service.Translate(cmd.Context(), bw, job)
			if flushErr := bw.Flush(); err == nil && flushErr != nil {
				err = fmt.Errorf("write output: %w", flushErr)
			}
			if err != nil {
				return err
			}
			if file != nil {
				if err := file.Close(); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
			}

			log := a.logger.With(zap.Int("segments", summary.Segments), zap.Int("groups", summary.Groups))
			if summary.FailedGroups > 0 {
				log.Warn("some groups failed and carry an error marker", zap.Int("failed_groups", summary.FailedGroups))
			} else {
				log.Info("translation complete")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input .srt file, - for stdin (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}
