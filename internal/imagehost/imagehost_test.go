package imagehost_test

import (
	"context"
	"testing"

	"bbdrop/internal/config"
	"bbdrop/internal/imagehost"
	"bbdrop/internal/services"
)

func registryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Hosts.IMX.BaseURL = "https://imx.example"
	cfg.Hosts.IMX.APIBaseURL = "https://api.imx.example/v1"
	cfg.Hosts.Turbo.BaseURL = "https://turbo.example"
	return &cfg
}

func TestNewRegistryBuildsEnabledHosts(t *testing.T) {
	cfg := registryConfig(t)
	cfg.Hosts.IMX.Enabled = true
	cfg.Hosts.Turbo.Enabled = true

	registry, err := imagehost.NewRegistry(cfg, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	ids := registry.IDs()
	if len(ids) != 2 || ids[0] != "imx" || ids[1] != "turbo" {
		t.Fatalf("expected [imx turbo], got %v", ids)
	}

	imx, err := registry.Get("imx")
	if err != nil {
		t.Fatalf("get imx: %v", err)
	}
	if imx.ID() != "imx" {
		t.Fatalf("expected imx client, got %q", imx.ID())
	}
	if !imx.Capabilities().SupportsRename {
		t.Fatal("imx should support renames")
	}

	turbo, err := registry.Get("TURBO")
	if err != nil {
		t.Fatalf("get should normalize case: %v", err)
	}
	if turbo.ID() != "turbo" {
		t.Fatalf("expected turbo client, got %q", turbo.ID())
	}
}

func TestNewRegistrySkipsDisabledHosts(t *testing.T) {
	cfg := registryConfig(t)
	cfg.Hosts.IMX.Enabled = true
	cfg.Hosts.Turbo.Enabled = false

	registry, err := imagehost.NewRegistry(cfg, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	if _, err := registry.Get("turbo"); err == nil {
		t.Fatal("expected error for disabled host")
	} else if kind := services.FailureKind(err); kind != "not_found" {
		t.Fatalf("expected not_found, got %q", kind)
	}
}

func TestNewRegistryRequiresEnabledHost(t *testing.T) {
	cfg := registryConfig(t)
	cfg.Hosts.IMX.Enabled = false
	cfg.Hosts.Turbo.Enabled = false

	if _, err := imagehost.NewRegistry(cfg, nil); err == nil {
		t.Fatal("expected error when no hosts are enabled")
	} else if kind := services.FailureKind(err); kind != "configuration" {
		t.Fatalf("expected configuration failure, got %q", kind)
	}
}

// plainClient implements only the required Client surface.
type plainClient struct{}

func (plainClient) ID() string     { return "plain" }
func (plainClient) WebURL() string { return "https://plain.example" }
func (plainClient) UploadImage(ctx context.Context, req imagehost.UploadRequest) (*imagehost.UploadResult, error) {
	return &imagehost.UploadResult{}, nil
}
func (plainClient) GalleryURL(galleryID, galleryName string) string { return "" }
func (plainClient) Capabilities() imagehost.Capabilities            { return imagehost.Capabilities{} }

func TestSanitizeGalleryNameFallsBackToTrim(t *testing.T) {
	if got := imagehost.SanitizeGalleryName(plainClient{}, "  My Gallery  "); got != "My Gallery" {
		t.Fatalf("expected trimmed passthrough, got %q", got)
	}

	imx := imagehost.NewIMX(config.Host{BaseURL: "https://imx.example"}, nil)
	if got := imagehost.SanitizeGalleryName(imx, "bad/name"); got != "badname" {
		t.Fatalf("expected host rules applied, got %q", got)
	}
}

func TestOptionalInterfaceDiscovery(t *testing.T) {
	imx := imagehost.NewIMX(config.Host{BaseURL: "https://imx.example"}, nil)
	turbo := imagehost.NewTurbo(config.Host{BaseURL: "https://turbo.example"}, nil)

	if _, ok := interface{}(imx).(imagehost.GalleryRenamer); !ok {
		t.Fatal("imx must implement GalleryRenamer")
	}
	if _, ok := interface{}(turbo).(imagehost.GalleryRenamer); ok {
		t.Fatal("turbo must not implement GalleryRenamer")
	}
	if _, ok := interface{}(turbo).(imagehost.BatchResultFetcher); !ok {
		t.Fatal("turbo must implement BatchResultFetcher")
	}
	if _, ok := interface{}(imx).(imagehost.BatchResultFetcher); ok {
		t.Fatal("imx must not implement BatchResultFetcher")
	}
	if _, ok := interface{}(imx).(imagehost.ThumbnailURLProvider); !ok {
		t.Fatal("imx must implement ThumbnailURLProvider")
	}
	if _, ok := interface{}(turbo).(imagehost.APICookieClearer); !ok {
		t.Fatal("turbo must implement APICookieClearer")
	}

	var plain imagehost.Client = plainClient{}
	if _, ok := plain.(imagehost.NameSanitizer); ok {
		t.Fatal("plain client must not implement NameSanitizer")
	}
}
