package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bbdrop/internal/naturalsort"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
}

// FileInfo describes one image file in a gallery folder.
type FileInfo struct {
	Name     string
	Path     string
	Size     int64
	Position int
}

// Listing is the result of enumerating a gallery folder: the full canonical
// ordering plus the partitions the upload run works from.
type Listing struct {
	Folder     string
	All        []FileInfo
	Work       []FileInfo
	Oversized  []FileInfo
	Resumed    []FileInfo
	Excluded   []FileInfo
	// Positions maps exact filename to canonical slot index.
	Positions map[string]int
	TotalBytes int64
	WorkBytes  int64
}

// Options controls enumeration filtering.
type Options struct {
	// MaxFileSizeMB skips files larger than this many megabytes. Zero
	// means no limit.
	MaxFileSizeMB int
	// Exclude lists file names to skip entirely.
	Exclude []string
	// Uploaded lists file names already uploaded by a previous run;
	// they keep their canonical position but are not re-uploaded.
	Uploaded []string
	// Comparator defines the canonical order. Nil selects the generic
	// natural-sort comparator.
	Comparator naturalsort.Comparator
}

// ListImages enumerates the image files in folder, sorts them into canonical
// order, and partitions them into the work list and the skip categories.
// Position indexes are assigned against the full ordered listing before any
// filtering, so resumed and failed files re-sort into the same slots later.
func ListImages(folder string, opts Options) (*Listing, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folder, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := imageExtensions[ext]; !ok {
			continue
		}
		names = append(names, entry.Name())
	}
	naturalsort.Sort(names, opts.Comparator)

	excluded := lowercaseSet(opts.Exclude)
	uploaded := lowercaseSet(opts.Uploaded)
	var sizeLimit int64
	if opts.MaxFileSizeMB > 0 {
		sizeLimit = int64(opts.MaxFileSizeMB) * 1024 * 1024
	}

	listing := &Listing{
		Folder:    folder,
		All:       make([]FileInfo, 0, len(names)),
		Positions: make(map[string]int, len(names)),
	}
	for idx, name := range names {
		path := filepath.Join(folder, name)
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		file := FileInfo{Name: name, Path: path, Size: info.Size(), Position: idx}
		listing.All = append(listing.All, file)
		// Positions are keyed by exact name; two files differing only by
		// case are distinct files with distinct slots.
		listing.Positions[name] = idx
		listing.TotalBytes += file.Size

		key := strings.ToLower(name)
		switch {
		case contains(excluded, key):
			listing.Excluded = append(listing.Excluded, file)
		case contains(uploaded, key):
			listing.Resumed = append(listing.Resumed, file)
		case sizeLimit > 0 && file.Size > sizeLimit:
			listing.Oversized = append(listing.Oversized, file)
		default:
			listing.Work = append(listing.Work, file)
			listing.WorkBytes += file.Size
		}
	}
	return listing, nil
}

func lowercaseSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		set[strings.ToLower(trimmed)] = struct{}{}
	}
	return set
}

func contains(set map[string]struct{}, key string) bool {
	if set == nil {
		return false
	}
	_, ok := set[key]
	return ok
}
