package imagehost

import (
	"mime"
	"net"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"bbdrop/internal/config"
)

// Both hosts gate uploads on a browser-looking user agent.
const hostUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:141.0) Gecko/20100101 Firefox/141.0"

func newRestyClient(cfg config.Host) *resty.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout: time.Duration(cfg.ConnectTimeout) * time.Second,
	}).DialContext

	client := resty.New()
	client.SetTransport(transport)
	client.SetTimeout(time.Duration(cfg.ReadTimeout) * time.Second)
	client.SetHeader("User-Agent", hostUserAgent)
	return client
}

func mimeForImage(path string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		return t
	}
	return "image/jpeg"
}

func contentTypeOrDefault(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return "all"
	}
	return contentType
}

// snippet truncates server responses quoted in error messages.
func snippet(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > 200 {
		return body[:200]
	}
	return body
}

func finalURLPath(resp *resty.Response) string {
	if resp == nil || resp.RawResponse == nil || resp.RawResponse.Request == nil || resp.RawResponse.Request.URL == nil {
		return ""
	}
	return resp.RawResponse.Request.URL.Path
}

var galleryNameCleaner = regexp.MustCompile(`[^\w\s\-.]`)

// sanitizeName applies the gallery title rules both hosts share: strip
// anything outside word characters, spaces, hyphens, and dots, then cap the
// result at the host's length limit.
func sanitizeName(name string, maxLen int) string {
	cleaned := strings.TrimSpace(galleryNameCleaner.ReplaceAllString(name, ""))
	if len(cleaned) > maxLen {
		cleaned = strings.TrimSpace(cleaned[:maxLen])
	}
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}
