package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"bbdrop/internal/engine"
)

// DefaultTemplateName selects the built-in template.
const DefaultTemplateName = "default"

const templateExtension = ".template"

// failedSummaryCap bounds how many failed files the appended summary lists.
const failedSummaryCap = 20

const builtinTemplate = `[b]#folderName#[/b]
#pictureCount# images | #width#x#height# | #folderSize#
#galleryLink#

#allImages#
`

// Renderer resolves templates by name and renders gallery results into
// BBCode. Unknown placeholders pass through untouched so templates can carry
// literal hash marks.
type Renderer struct {
	templatesDir string
}

// NewRenderer builds a renderer over the given templates directory. An empty
// directory limits the renderer to the built-in template.
func NewRenderer(templatesDir string) *Renderer {
	return &Renderer{templatesDir: strings.TrimSpace(templatesDir)}
}

// Names lists the available template names: the built-in default plus every
// .template file in the templates directory.
func (r *Renderer) Names() []string {
	names := []string{DefaultTemplateName}
	if r.templatesDir == "" {
		return names
	}
	entries, err := os.ReadDir(r.templatesDir)
	if err != nil {
		return names
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), templateExtension) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), templateExtension)
		if name != DefaultTemplateName {
			names = append(names, name)
		}
	}
	return names
}

// Load returns the template body for name. A missing or unreadable template
// file falls back to the built-in default.
func (r *Renderer) Load(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == DefaultTemplateName {
		return builtinTemplate, nil
	}
	if r.templatesDir == "" {
		return builtinTemplate, fmt.Errorf("template %q: no templates directory configured", name)
	}
	body, err := os.ReadFile(filepath.Join(r.templatesDir, name+templateExtension))
	if err != nil {
		return builtinTemplate, fmt.Errorf("template %q: %w", name, err)
	}
	return string(body), nil
}

// Render loads the named template and substitutes the gallery placeholders.
// When the upload finished with failures a summary block is appended after
// the rendered body. Template resolution failures degrade to the built-in
// template; the error reports the degradation so callers can log it.
func (r *Renderer) Render(templateName, folderPath string, result *engine.Result) (string, error) {
	body, loadErr := r.Load(templateName)
	rendered := substitute(body, folderPath, result)
	if summary := failedSummary(result.Failed); summary != "" {
		rendered = strings.TrimRight(rendered, "\n") + "\n" + summary + "\n"
	}
	return rendered, loadErr
}

func substitute(body, folderPath string, result *engine.Result) string {
	tags := make([]string, 0, len(result.Images))
	for _, img := range result.Images {
		if img.BBCode != "" {
			tags = append(tags, img.BBCode)
			continue
		}
		if img.ImageURL == "" {
			continue
		}
		if img.ThumbURL != "" {
			tags = append(tags, fmt.Sprintf("[url=%s][img]%s[/img][/url]", img.ImageURL, img.ThumbURL))
		} else {
			tags = append(tags, fmt.Sprintf("[url=%s]%s[/url]", img.ImageURL, img.OriginalFilename))
		}
	}

	replacer := strings.NewReplacer(
		"#folderName#", filepath.Base(folderPath),
		"#pictureCount#", strconv.Itoa(result.SuccessfulCount),
		"#width#", strconv.Itoa(result.Dimensions.Width),
		"#height#", strconv.Itoa(result.Dimensions.Height),
		"#longest#", strconv.Itoa(result.Dimensions.LongestEdge),
		"#extension#", dominantExtension(result.Images),
		"#folderSize#", humanize.IBytes(uint64(max(result.TotalBytes, 0))),
		"#galleryLink#", result.GalleryURL,
		"#allImages#", strings.Join(tags, "  "),
	)
	return replacer.Replace(body)
}

// dominantExtension returns the most common image extension across the
// uploaded URLs, uppercased, defaulting to JPG.
func dominantExtension(images []engine.Image) string {
	counts := make(map[string]int)
	for _, img := range images {
		source := img.OriginalFilename
		if source == "" {
			source = img.ImageURL
		}
		ext := strings.ToUpper(strings.TrimPrefix(filepath.Ext(source), "."))
		switch ext {
		case "JPG", "JPEG", "PNG", "GIF", "BMP", "WEBP":
			if ext == "JPEG" {
				ext = "JPG"
			}
			counts[ext]++
		}
	}
	best := "JPG"
	bestCount := 0
	for ext, count := range counts {
		if count > bestCount || (count == bestCount && ext < best) {
			best = ext
			bestCount = count
		}
	}
	return best
}

func failedSummary(failed []engine.FailedImage) string {
	if len(failed) == 0 {
		return ""
	}
	lines := []string{fmt.Sprintf("[b]Failed (%d):[/b]", len(failed))}
	for i, failure := range failed {
		if i == failedSummaryCap {
			lines = append(lines, fmt.Sprintf("... and %d more", len(failed)-failedSummaryCap))
			break
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", failure.Filename, failure.Reason))
	}
	return strings.Join(lines, "\n")
}
