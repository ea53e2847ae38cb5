package scan

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/sync/errgroup"
)

// Dimensions holds one decoded image size.
type Dimensions struct {
	Width  int
	Height int
}

// DimensionSummary aggregates the sizes of a folder's images for the final
// result and artifact placeholders. Width and Height are the most common
// dimensions; LongestEdge is the maximum edge across all scanned files.
type DimensionSummary struct {
	Width       int
	Height      int
	LongestEdge int
	Scanned     int
}

// ScanDimensions decodes the image headers of files in parallel and tallies
// the folder's dimension summary. Files that fail to decode are skipped;
// only context cancellation aborts the scan.
func ScanDimensions(ctx context.Context, files []FileInfo, parallelism int) (DimensionSummary, error) {
	if parallelism <= 0 {
		parallelism = 4
	}

	results := make([]*Dimensions, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for idx, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dims, err := decodeDimensions(file.Path)
			if err != nil {
				return nil
			}
			results[idx] = &dims
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DimensionSummary{}, err
	}

	// Tally sequentially in canonical order so mode ties resolve the same
	// way on every run.
	counts := make(map[Dimensions]int)
	var summary DimensionSummary
	var mode Dimensions
	best := 0
	for _, dims := range results {
		if dims == nil {
			continue
		}
		summary.Scanned++
		if edge := max(dims.Width, dims.Height); edge > summary.LongestEdge {
			summary.LongestEdge = edge
		}
		counts[*dims]++
		if counts[*dims] > best {
			best = counts[*dims]
			mode = *dims
		}
	}
	summary.Width = mode.Width
	summary.Height = mode.Height
	return summary, nil
}

func decodeDimensions(path string) (Dimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return Dimensions{}, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return Dimensions{}, err
	}

	width, height := cfg.Width, cfg.Height
	if isJPEG(path) {
		if orientation, ok := jpegOrientation(path); ok {
			width, height = applyOrientation(width, height, orientation)
		}
	}
	return Dimensions{Width: width, Height: height}, nil
}

func isJPEG(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}

// jpegOrientation reads the EXIF orientation tag. Missing or unreadable
// EXIF data is normal for many files and reports no orientation.
func jpegOrientation(path string) (int, bool) {
	file, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer file.Close()

	meta, err := exif.Decode(file)
	if err != nil {
		return 0, false
	}
	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return 0, false
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return orientation, true
}

// applyOrientation swaps width and height for EXIF orientations 5 through 8,
// which rotate the raster 90 degrees.
func applyOrientation(width, height, orientation int) (int, int) {
	if orientation >= 5 && orientation <= 8 {
		return height, width
	}
	return width, height
}
