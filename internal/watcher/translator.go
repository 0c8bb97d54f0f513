package watcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/subrelay/backend/internal/subtitle/tokenize"
	"github.com/subrelay/backend/internal/subtitle/translate"
)

// Translator is the part of translate.Service a FileTranslator needs.
type Translator interface {
	Translate(ctx context.Context, w io.Writer, job translate.Job) (translate.Summary, error)
}

// FileTranslator writes a translated copy of each subtitle file into OutDir
// as <base>.<suffix>.srt.
type FileTranslator struct {
	service Translator
	outDir  string
	suffix  string
	job     translate.Job
	logger  *zap.Logger
}

var unsafeSuffix = regexp.MustCompile(`[^a-z0-9-]+`)

// NewFileTranslator prepares a translator for job's language, engine and preset.
// job.Content is filled per file.
func NewFileTranslator(service Translator, outDir string, job translate.Job, logger *zap.Logger) (*FileTranslator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	lang, err := tokenize.Resolve(job.Language)
	if err != nil {
		return nil, err
	}
	suffix := lang.Code()
	if suffix == "" {
		suffix = strings.Trim(unsafeSuffix.ReplaceAllString(strings.ToLower(lang.Name), "-"), "-")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileTranslator{service: service, outDir: outDir, suffix: suffix, job: job, logger: logger}, nil
}

// OutputPath returns where the translation of path is written.
func (f *FileTranslator) OutputPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(f.outDir, base+"."+f.suffix+".srt")
}

// IsOutput reports whether path looks like a file this translator produced.
func (f *FileTranslator) IsOutput(path string) bool {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.EqualFold(filepath.Ext(base), "."+f.suffix)
}

// Handle translates one file. The output appears atomically once the whole document is written.
func (f *FileTranslator) Handle(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	out := f.OutputPath(path)
	tmp, err := os.CreateTemp(f.outDir, "."+filepath.Base(out)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	job := f.job
	job.Content = string(content)
	summary, err := f.service.Translate(ctx, bw, job)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("translate %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", out, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return fmt.Errorf("rename to %s: %w", out, err)
	}

	f.logger.Info("wrote translation",
		zap.String("source", path),
		zap.String("output", out),
		zap.Int("groups", summary.Groups),
		zap.Int("failed_groups", summary.FailedGroups),
	)
	return nil
}
