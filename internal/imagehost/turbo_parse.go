package imagehost

import (
	"fmt"
	"regexp"
	"strings"
)

// The results page carries three things worth scraping: the album link in
// the imgCodeGG input, one thumbnail div per image, and server-generated
// BBCode in either a textarea (multi image) or an input (single image).
var (
	turboGalleryInput = regexp.MustCompile(`(?i)<input[^>]*id="imgCodeGG"[^>]*value="([^"]*)"`)
	turboAlbumID      = regexp.MustCompile(`/album/(\d+)`)
	turboThumbDiv     = regexp.MustCompile(`(?i)<div[^>]*id="im_(\d+)"[^>]*title="([^"]*)"[^>]*><a[^>]*href="([^"]+)"[^>]*class="thumbUrl"[^>]*style="background-image:url\('([^']+)'\)"`)
	turboBBCodeArea   = regexp.MustCompile(`(?is)<textarea[^>]*id="imgCodeURF"[^>]*>(.*?)</textarea>`)
	turboBBCodeInput  = regexp.MustCompile(`(?i)<input[^>]*id="imgCodeIPF"[^>]*value="([^"]+)"`)
	turboBBCodeEntry  = regexp.MustCompile(`(?i)\[URL=[^\]]+\]\[IMG\][^\[]+\[/IMG\]\[/URL\]`)
	turboBBCodeParts  = regexp.MustCompile(`(?i)\[URL=([^\]]+)\]\[IMG\]([^\[]+)\[/IMG\]\[/URL\]`)
)

func parseTurboBatch(html string) *BatchResults {
	batch := &BatchResults{}

	if m := turboGalleryInput.FindStringSubmatch(html); m != nil {
		if am := turboAlbumID.FindStringSubmatch(m[1]); am != nil {
			batch.GalleryID = am[1]
		}
	}

	images := make(map[string]*BatchImage)
	var order []string
	for _, m := range turboThumbDiv.FindAllStringSubmatch(html, -1) {
		filename, imageURL, thumbURL := m[2], m[3], m[4]
		key := strings.ToLower(filename)
		if _, seen := images[key]; seen {
			continue
		}
		images[key] = &BatchImage{
			OriginalFilename: filename,
			ImageURL:         imageURL,
			ThumbURL:         thumbURL,
			BBCode:           fmt.Sprintf("[URL=%s][IMG]%s[/IMG][/URL]", imageURL, thumbURL),
		}
		order = append(order, key)
	}

	// Server BBCode wins over the div-derived fallback because it reflects
	// the host's canonical link format.
	bbcodeByFile := make(map[string]string)
	if m := turboBBCodeArea.FindStringSubmatch(html); m != nil {
		for _, entry := range turboBBCodeEntry.FindAllString(m[1], -1) {
			lower := strings.ToLower(entry)
			for _, key := range order {
				if strings.Contains(lower, key) {
					bbcodeByFile[key] = entry
					break
				}
			}
		}
	} else if m := turboBBCodeInput.FindStringSubmatch(html); m != nil {
		if bb := strings.TrimSpace(m[1]); bb != "" && len(order) > 0 {
			bbcodeByFile[order[0]] = bb
		}
	}

	for _, key := range order {
		img := images[key]
		if bb, ok := bbcodeByFile[key]; ok {
			img.BBCode = bb
			if parts := turboBBCodeParts.FindStringSubmatch(bb); parts != nil {
				img.ImageURL = parts[1]
				img.ThumbURL = parts[2]
			}
		}
		batch.Images = append(batch.Images, *img)
	}
	return batch
}
