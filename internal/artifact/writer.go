package artifact

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"bbdrop/internal/config"
	"bbdrop/internal/engine"
	"bbdrop/internal/logging"
)

// Paths reports where a gallery's artifacts were written.
type Paths struct {
	BBCode string `json:"bbcode"`
	JSON   string `json:"json"`
}

// Writer renders and persists gallery artifacts into the artifact directory.
type Writer struct {
	renderer    *Renderer
	artifactDir string
	logger      *slog.Logger
}

// NewWriter builds a writer from the repository configuration.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	return &Writer{
		renderer:    NewRenderer(cfg.Paths.TemplatesDir),
		artifactDir: cfg.Paths.ArtifactDir,
		logger:      logging.NewComponentLogger(logger, "artifact"),
	}
}

// Renderer exposes the writer's template renderer for listing and preview.
func (w *Writer) Renderer() *Renderer {
	return w.renderer
}

// Write renders the BBCode artifact and serializes the full result record,
// writing both atomically next to each other in the artifact directory. The
// base name comes from the gallery name, falling back to the folder name.
func (w *Writer) Write(folderPath, galleryName, templateName string, result *engine.Result) (Paths, error) {
	if result == nil {
		return Paths{}, fmt.Errorf("write artifacts: result is nil")
	}
	if err := os.MkdirAll(w.artifactDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create artifact directory: %w", err)
	}

	base := artifactBase(galleryName, folderPath)
	paths := Paths{
		BBCode: filepath.Join(w.artifactDir, base+".txt"),
		JSON:   filepath.Join(w.artifactDir, base+".json"),
	}

	bbcode, err := w.renderer.Render(templateName, folderPath, result)
	if err != nil {
		// Render degrades to the built-in template; worth a warning, not a failure.
		w.logger.Warn("template fell back to built-in default",
			logging.String("template", templateName),
			logging.Error(err))
	}
	if err := writeAtomic(paths.BBCode, []byte(bbcode)); err != nil {
		return Paths{}, err
	}

	record, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return Paths{}, fmt.Errorf("encode result record: %w", err)
	}
	if err := writeAtomic(paths.JSON, append(record, '\n')); err != nil {
		return Paths{}, err
	}

	w.logger.Info("wrote gallery artifacts",
		logging.String("bbcode", paths.BBCode),
		logging.String("json", paths.JSON))
	return paths, nil
}

var unsafeBaseChars = regexp.MustCompile(`[^\w\s\-.]`)

// artifactBase derives a filesystem-safe artifact base name.
func artifactBase(galleryName, folderPath string) string {
	base := strings.TrimSpace(galleryName)
	if base == "" {
		base = filepath.Base(folderPath)
	}
	base = strings.TrimSpace(unsafeBaseChars.ReplaceAllString(base, ""))
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		base = "gallery"
	}
	return base
}

// writeAtomic writes through a temp file and rename so readers never observe
// a partial artifact.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close artifact %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalize artifact %s: %w", path, err)
	}
	return nil
}
