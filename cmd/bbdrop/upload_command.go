package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"bbdrop/internal/queue"
	"bbdrop/internal/rename"
	"bbdrop/internal/workflow"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var (
		nameFlag        string
		hostFlag        string
		templateFlag    string
		concurrencyFlag int
		retriesFlag     int
		resumeFlag      bool
	)

	cmd := &cobra.Command{
		Use:   "upload <folder>",
		Short: "Upload an image folder as a gallery, waiting in the foreground",
		Long: `Upload every image in a folder to the configured host as a single gallery.

The command runs in the foreground and shows per-image progress. Press Ctrl-C
once to stop gracefully after in-flight uploads finish; press it again to
abort immediately. A stopped upload can be continued with --resume.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve folder path: %w", err)
			}
			if info, err := os.Stat(folder); err != nil {
				return fmt.Errorf("folder %s: %w", folder, err)
			} else if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", folder)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if concurrencyFlag > 0 {
				cfg.Upload.ParallelBatchSize = concurrencyFlag
			}
			if retriesFlag >= 0 {
				cfg.Upload.MaxRetries = retriesFlag
			}

			return ctx.withStore(func(store *queue.Store) error {
				return runForegroundUpload(cmd, ctx, store, folder, nameFlag, hostFlag, templateFlag, resumeFlag)
			})
		},
	}

	cmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Gallery name (defaults to the folder name)")
	cmd.Flags().StringVar(&hostFlag, "host", "", "Image host id (defaults to upload.default_host)")
	cmd.Flags().StringVarP(&templateFlag, "template", "t", "", "BBCode template name")
	cmd.Flags().IntVar(&concurrencyFlag, "concurrency", 0, "Parallel upload count (overrides config)")
	cmd.Flags().IntVar(&retriesFlag, "retries", -1, "Retry passes for failed images (overrides config)")
	cmd.Flags().BoolVar(&resumeFlag, "resume", false, "Continue a previously interrupted upload of this folder")
	return cmd
}

func runForegroundUpload(cmd *cobra.Command, cliCtx *commandContext, store *queue.Store, folder, name, host, template string, resume bool) error {
	cfg, err := cliCtx.ensureConfig()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	item, err := store.GetByPath(runCtx, folder)
	if err != nil {
		return err
	}
	switch {
	case item == nil:
		item, err = store.NewGallery(runCtx, folder, name, host, template)
		if err != nil {
			return err
		}
	case !resume:
		return fmt.Errorf("folder already tracked as item %d (%s); pass --resume to continue it", item.ID, item.Status)
	case item.Status == queue.StatusUploading:
		return fmt.Errorf("item %d is already uploading; stop the daemon first or wait for it to finish", item.ID)
	}

	hosts, err := cliCtx.hostRegistry()
	if err != nil {
		return err
	}

	logger := cliCtx.cliLogger()
	var renames *rename.Service
	if cfg.Upload.AutoRename {
		ledger, err := rename.OpenLedger(cfg.RenameLedgerPath())
		if err != nil {
			return err
		}
		defer ledger.Close()
		renames = rename.NewService(hosts, ledger, logger)
		if err := renames.Start(runCtx); err != nil {
			return err
		}
	}

	manager := workflow.NewManager(cfg, store, hosts, renames, logger)

	out := cmd.OutOrStdout()
	bar := newUploadProgress(out)
	manager.SetProgressObserver(func(completed, total, percent int, filename string) {
		bar.observe(completed, total, filename)
	})

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
		case <-runCtx.Done():
			return
		}
		bar.clear()
		fmt.Fprintln(out, "Stopping after in-flight uploads finish (Ctrl-C again to abort)...")
		manager.RequestStop()
		select {
		case <-sigs:
			cancel()
		case <-runCtx.Done():
		}
	}()

	started := time.Now()
	final, err := manager.RunItem(runCtx, item)
	bar.finish()
	if err != nil {
		return err
	}

	if renames != nil {
		renames.Stop()
		if _, _, err := renames.ProcessPending(context.WithoutCancel(runCtx)); err != nil {
			logger.Warn("flush pending renames failed", "error", err)
		}
	}

	return printUploadSummary(out, final, time.Since(started))
}

func printUploadSummary(out io.Writer, item *queue.Item, elapsed time.Duration) error {
	switch item.Status {
	case queue.StatusCompleted:
		color.New(color.FgGreen, color.Bold).Fprintf(out, "Uploaded %s\n", item.GalleryName)
		fmt.Fprintf(out, "  %d images, %s in %s\n",
			item.UploadedImages, humanize.IBytes(uint64(max(item.UploadedBytes, 0))), elapsed.Round(time.Second))
		if item.GalleryURL != "" {
			fmt.Fprintf(out, "  %s\n", item.GalleryURL)
		}
		return nil

	case queue.StatusIncomplete:
		color.New(color.FgYellow, color.Bold).Fprintf(out, "Upload paused: %s\n", item.GalleryName)
		fmt.Fprintf(out, "  %d of %d images uploaded; run the same command with --resume to continue\n",
			item.UploadedImages, item.TotalImages)
		return nil

	case queue.StatusFailed:
		color.New(color.FgRed, color.Bold).Fprintf(out, "Upload failed: %s\n", item.GalleryName)
		if item.ErrorMessage != "" {
			fmt.Fprintf(out, "  %s\n", item.ErrorMessage)
		}
		for _, failure := range item.FailureList() {
			fmt.Fprintf(out, "  %s: %s\n", failure.Filename, failure.Reason)
		}
		if item.UploadedImages > 0 {
			fmt.Fprintf(out, "  %d images made it; --resume retries only the failures\n", item.UploadedImages)
		}
		return errors.New("upload finished with failures")

	default:
		return fmt.Errorf("upload ended in unexpected state %q", item.Status)
	}
}

// uploadProgress renders a terminal progress bar, or stays silent when
// stdout is not a TTY.
type uploadProgress struct {
	out io.Writer
	tty bool
	bar *progressbar.ProgressBar
}

func newUploadProgress(out io.Writer) *uploadProgress {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &uploadProgress{out: out, tty: tty}
}

func (p *uploadProgress) observe(completed, total int, filename string) {
	if !p.tty {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("uploading"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer: "=", SaucerHead: ">", SaucerPadding: " ", BarStart: "[", BarEnd: "]",
			}),
		)
	}
	p.bar.Describe("uploading " + filename)
	_ = p.bar.Set(completed)
}

func (p *uploadProgress) clear() {
	if p.bar != nil {
		_ = p.bar.Clear()
	}
}

func (p *uploadProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		_ = p.bar.Clear()
	}
}
