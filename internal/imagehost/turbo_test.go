package imagehost_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"bbdrop/internal/config"
	"bbdrop/internal/imagehost"
	"bbdrop/internal/services"
)

func turboHostConfig(baseURL string) config.Host {
	return config.Host{
		Enabled:        true,
		BaseURL:        baseURL,
		ConnectTimeout: 5,
		ReadTimeout:    10,
		SessionCookie:  "turbo-session",
	}
}

var batchIDPattern = regexp.MustCompile(`^[a-z0-9]{20}$`)

func TestTurboUploadImageStartsBatch(t *testing.T) {
	var captured struct {
		path      string
		xhr       string
		form      map[string]string
		filename  string
		mimeType  string
		hasCookie bool
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.xhr = r.Header.Get("X-Requested-With")
		if cookie, err := r.Cookie("PHPSESSID"); err == nil && cookie.Value == "turbo-session" {
			captured.hasCookie = true
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart form: %v", err)
		}
		captured.form = map[string]string{}
		for key := range r.MultipartForm.Value {
			captured.form[key] = r.FormValue(key)
		}
		_, header, err := r.FormFile("qqfile")
		if err != nil {
			t.Fatalf("missing qqfile part: %v", err)
		}
		captured.filename = header.Filename
		captured.mimeType = header.Header.Get("Content-Type")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := imagehost.NewTurbo(turboHostConfig(server.URL), nil)
	path := writeTestImage(t, t.TempDir(), "01.png", 128)

	result, err := client.UploadImage(context.Background(), imagehost.UploadRequest{
		Path:          path,
		CreateGallery: true,
		GalleryName:   "Summer Trip",
		ThumbnailSize: 3,
	})
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}

	if captured.path != "/upload_html5.tu" {
		t.Fatalf("expected POST to /upload_html5.tu, got %s", captured.path)
	}
	if captured.xhr != "XMLHttpRequest" {
		t.Fatalf("expected XHR header, got %q", captured.xhr)
	}
	if !captured.hasCookie {
		t.Fatal("expected session cookie on upload request")
	}
	if captured.filename != "01.png" {
		t.Fatalf("expected filename 01.png, got %q", captured.filename)
	}
	if captured.mimeType != "image/png" {
		t.Fatalf("expected image/png part, got %q", captured.mimeType)
	}
	if !batchIDPattern.MatchString(captured.form["upload_id"]) {
		t.Fatalf("expected 20 char lowercase upload id, got %q", captured.form["upload_id"])
	}
	if captured.form["thumb_size"] != "300" {
		t.Fatalf("expected thumb_size 300 for code 3, got %q", captured.form["thumb_size"])
	}
	if captured.form["imcontent"] != "all" {
		t.Fatalf("expected imcontent all, got %q", captured.form["imcontent"])
	}
	if captured.form["galleryAN"] != "1" || captured.form["galleryN"] != "Summer Trip" {
		t.Fatalf("expected gallery naming fields, got %v", captured.form)
	}

	if result.GalleryID != captured.form["upload_id"] {
		t.Fatalf("expected gallery id %q, got %q", captured.form["upload_id"], result.GalleryID)
	}
	if result.ImageURL != "" {
		t.Fatalf("turbo uploads must not carry image URLs before the batch fetch, got %q", result.ImageURL)
	}
}

func TestTurboUploadImageReusesBatchID(t *testing.T) {
	var uploadIDs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart form: %v", err)
		}
		uploadIDs = append(uploadIDs, r.FormValue("upload_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := imagehost.NewTurbo(turboHostConfig(server.URL), nil)
	dir := t.TempDir()
	first := writeTestImage(t, dir, "01.jpg", 64)
	second := writeTestImage(t, dir, "02.jpg", 64)

	if _, err := client.UploadImage(context.Background(), imagehost.UploadRequest{
		Path:          first,
		CreateGallery: true,
		GalleryName:   "Batch",
	}); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if _, err := client.UploadImage(context.Background(), imagehost.UploadRequest{
		Path:        second,
		GalleryID:   uploadIDs[0],
		GalleryName: "Batch",
	}); err != nil {
		t.Fatalf("second upload: %v", err)
	}

	if len(uploadIDs) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(uploadIDs))
	}
	if uploadIDs[0] != uploadIDs[1] {
		t.Fatalf("expected shared batch id, got %q and %q", uploadIDs[0], uploadIDs[1])
	}
}

func TestTurboUploadImageRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":false,"error":"file type not allowed"}`))
	}))
	defer server.Close()

	client := imagehost.NewTurbo(turboHostConfig(server.URL), nil)
	path := writeTestImage(t, t.TempDir(), "bad.gif", 64)

	_, err := client.UploadImage(context.Background(), imagehost.UploadRequest{Path: path, CreateGallery: true})
	if err == nil {
		t.Fatal("expected rejected upload to error")
	}
	if kind := services.FailureKind(err); kind != "host" {
		t.Fatalf("expected host failure, got %q (%v)", kind, err)
	}
	if !strings.Contains(err.Error(), "upload rejected") {
		t.Fatalf("expected rejection message, got %v", err)
	}
}

const turboResultsPage = `
<html><body>
<input type="text" id="imgCodeGG" value="https://turbo.example/album/987654/Summer_Trip">
<div class="thumbs">
<div id="im_111" title="01.jpg"><a href="https://turbo.example/p/111/01.jpg" class="thumbUrl" style="background-image:url('https://s8d8.turboimg.net/t1/111.jpg')"></a></div>
<div id="im_222" title="02.JPG"><a href="https://turbo.example/p/222/02.JPG" class="thumbUrl" style="background-image:url('https://s8d8.turboimg.net/t1/222.jpg')"></a></div>
<div id="im_333" title="03.png"><a href="https://turbo.example/p/333/03.png" class="thumbUrl" style="background-image:url('https://s8d8.turboimg.net/t1/333.png')"></a></div>
</div>
<textarea id="imgCodeURF">
[URL=https://turbo.example/i/01.jpg][IMG]https://s8d8.turboimg.net/sp/aa/01.jpg[/IMG][/URL]
[URL=https://turbo.example/i/02.jpg][IMG]https://s8d8.turboimg.net/sp/bb/02.jpg[/IMG][/URL]
</textarea>
</body></html>`

func TestTurboFetchBatchResults(t *testing.T) {
	var fetchedUploadID string
	mux := http.NewServeMux()
	mux.HandleFunc("/upload_html5.tu", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/html5_upload_result.tu", func(w http.ResponseWriter, r *http.Request) {
		fetchedUploadID = r.URL.Query().Get("upload_id")
		_, _ = w.Write([]byte(turboResultsPage))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := imagehost.NewTurbo(turboHostConfig(server.URL), nil)
	path := writeTestImage(t, t.TempDir(), "01.jpg", 64)
	result, err := client.UploadImage(context.Background(), imagehost.UploadRequest{Path: path, CreateGallery: true})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	batch, err := client.FetchBatchResults(context.Background())
	if err != nil {
		t.Fatalf("fetch batch results: %v", err)
	}
	if fetchedUploadID != result.GalleryID {
		t.Fatalf("expected fetch for batch %q, got %q", result.GalleryID, fetchedUploadID)
	}
	if batch.GalleryID != "987654" {
		t.Fatalf("expected album id 987654, got %q", batch.GalleryID)
	}
	if len(batch.Images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(batch.Images))
	}

	// Server BBCode should replace the div fallback for matched files.
	first := batch.Images[0]
	if first.OriginalFilename != "01.jpg" {
		t.Fatalf("unexpected first image %q", first.OriginalFilename)
	}
	if first.ImageURL != "https://turbo.example/i/01.jpg" {
		t.Fatalf("expected server bbcode url, got %q", first.ImageURL)
	}
	if first.ThumbURL != "https://s8d8.turboimg.net/sp/aa/01.jpg" {
		t.Fatalf("expected server bbcode thumb, got %q", first.ThumbURL)
	}
	if !strings.Contains(first.BBCode, "[URL=https://turbo.example/i/01.jpg]") {
		t.Fatalf("unexpected bbcode %q", first.BBCode)
	}

	// 03.png has no server BBCode entry and keeps the div-derived links.
	third := batch.Images[2]
	if third.OriginalFilename != "03.png" {
		t.Fatalf("unexpected third image %q", third.OriginalFilename)
	}
	if third.ImageURL != "https://turbo.example/p/333/03.png" {
		t.Fatalf("expected div url, got %q", third.ImageURL)
	}
	if third.BBCode != "[URL=https://turbo.example/p/333/03.png][IMG]https://s8d8.turboimg.net/t1/333.png[/IMG][/URL]" {
		t.Fatalf("expected synthesized bbcode, got %q", third.BBCode)
	}
}

func TestTurboFetchBatchResultsRetriesOnServerError(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/upload_html5.tu", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/html5_upload_result.tu", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(turboResultsPage))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := imagehost.NewTurbo(turboHostConfig(server.URL), nil)
	path := writeTestImage(t, t.TempDir(), "01.jpg", 64)
	if _, err := client.UploadImage(context.Background(), imagehost.UploadRequest{Path: path, CreateGallery: true}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	batch, err := client.FetchBatchResults(context.Background())
	if err != nil {
		t.Fatalf("fetch batch results: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if batch.GalleryID != "987654" {
		t.Fatalf("expected parsed gallery id after retry, got %q", batch.GalleryID)
	}
}

func TestTurboFetchBatchResultsWithoutBatch(t *testing.T) {
	client := imagehost.NewTurbo(turboHostConfig("https://turbo.invalid"), nil)
	batch, err := client.FetchBatchResults(context.Background())
	if err != nil {
		t.Fatalf("expected no error without a batch, got %v", err)
	}
	if batch.GalleryID != "" || len(batch.Images) != 0 {
		t.Fatalf("expected empty batch, got %+v", batch)
	}
}

func TestTurboClearAPICookiesResetsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/html5_upload_result") {
			t.Fatal("batch fetch must not run after the batch id is cleared")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := imagehost.NewTurbo(turboHostConfig(server.URL), nil)
	path := writeTestImage(t, t.TempDir(), "01.jpg", 64)
	if _, err := client.UploadImage(context.Background(), imagehost.UploadRequest{Path: path, CreateGallery: true}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	client.ClearAPICookies()

	batch, err := client.FetchBatchResults(context.Background())
	if err != nil {
		t.Fatalf("fetch after clear: %v", err)
	}
	if len(batch.Images) != 0 {
		t.Fatalf("expected empty batch after clear, got %d images", len(batch.Images))
	}
}

func TestTurboGalleryURL(t *testing.T) {
	client := imagehost.NewTurbo(turboHostConfig("https://turbo.example"), nil)

	tests := []struct {
		galleryID   string
		galleryName string
		want        string
	}{
		{"987654", "", "https://turbo.example/album/987654"},
		{"987654", "Summer Trip 2024", "https://turbo.example/album/987654/Summer_Trip_2024"},
	}
	for _, tc := range tests {
		if got := client.GalleryURL(tc.galleryID, tc.galleryName); got != tc.want {
			t.Fatalf("gallery url (%q, %q): expected %q, got %q", tc.galleryID, tc.galleryName, tc.want, got)
		}
	}
}

func TestTurboThumbnailURL(t *testing.T) {
	client := imagehost.NewTurbo(turboHostConfig("https://turbo.example"), nil)
	if got := client.ThumbnailURL("111", ".jpg"); got != "https://s8d8.turboimg.net/t1/111.jpg" {
		t.Fatalf("unexpected thumbnail url %q", got)
	}
}

func TestTurboCapabilities(t *testing.T) {
	cfg := turboHostConfig("https://turbo.example")
	cfg.MaxFileSizeMB = 25
	client := imagehost.NewTurbo(cfg, nil)

	caps := client.Capabilities()
	if caps.MaxFileSizeMB != 25 {
		t.Fatalf("expected max file size 25, got %d", caps.MaxFileSizeMB)
	}
	if caps.SupportsRename {
		t.Fatal("turbo albums cannot be renamed after creation")
	}
}

func TestTurboUploadThumbSizes(t *testing.T) {
	var lastThumb string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart form: %v", err)
		}
		lastThumb = r.FormValue("thumb_size")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := imagehost.NewTurbo(turboHostConfig(server.URL), nil)
	dir := t.TempDir()

	tests := []struct {
		code int
		want string
	}{
		{1, "150"},
		{3, "300"},
		{6, "600"},
		{250, "250"},
		{42, "150"},
		{900, "600"},
	}
	for i, tc := range tests {
		path := writeTestImage(t, dir, fmt.Sprintf("t%d.jpg", i), 32)
		if _, err := client.UploadImage(context.Background(), imagehost.UploadRequest{
			Path:          path,
			CreateGallery: i == 0,
			ThumbnailSize: tc.code,
		}); err != nil {
			t.Fatalf("upload with size %d: %v", tc.code, err)
		}
		if lastThumb != tc.want {
			t.Fatalf("size code %d: expected thumb_size %q, got %q", tc.code, tc.want, lastThumb)
		}
	}
}
