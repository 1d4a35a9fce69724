package main

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"uploadq/internal/config"
	"uploadq/internal/metrics"
	"uploadq/internal/otel"
	"uploadq/internal/storage"
	"uploadq/internal/transport"
	"uploadq/internal/uploader"
)

const (
	transportHTTP = "http"
	transportS3   = "s3"
)

var ErrUploadsFailed = errors.New("uploads failed")

type flags struct {
	transport   string
	prefix      string
	skipExt     []string
	maxFileSize int64
	metricsAddr string
	verbose     bool
	meta        map[string]string
}

func newRootCmd(cfg *config.AppConfig) *cobra.Command {
	uc := cfg.Uploader
	f := flags{}

	cmd := &cobra.Command{
		Use:   "uploadq [flags] FILE...",
		Short: "Upload files through a bounded upload queue",
		Long: `Reads the given files, normalizes images (orientation, size, format),
and uploads every file as a JSON payload with a bounded number of
concurrent requests. Defaults come from the UPLOAD_* environment.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.verbose {
				cfg.LogLevel = slog.LevelDebug
			}
			if len(f.meta) > 0 {
				uc.Meta = maps.Clone(uc.Meta)
				if uc.Meta == nil {
					uc.Meta = map[string]any{}
				}
				for k, v := range f.meta {
					uc.Meta[k] = v
				}
			}
			return runUpload(cmd, cfg, uc, f, args)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&uc.URL, "url", uc.URL, "Upload endpoint for the http transport")
	fs.StringToStringVarP(&uc.Headers, "header", "H", uc.Headers, "Request header as key=value, repeatable")
	fs.StringToStringVar(&f.meta, "meta", nil, "Metadata attached to every payload as key=value")
	fs.StringVar(&uc.FinalImageMime, "final-mime", uc.FinalImageMime, `Image output format: image/jpeg, image/webp or "original"`)
	fs.IntVar(&uc.MaxImageWidth, "max-width", uc.MaxImageWidth, "Scale images down to this width, 0 for no limit")
	fs.IntVar(&uc.MaxImageHeight, "max-height", uc.MaxImageHeight, "Scale images down to this height, 0 for no limit")
	fs.IntVarP(&uc.Quality, "quality", "q", uc.Quality, "Lossy encoder quality, 0-100")
	fs.IntVar(&uc.ThumbWidth, "thumb-width", uc.ThumbWidth, "Thumbnail bounding width, 0 for none")
	fs.IntVar(&uc.ThumbHeight, "thumb-height", uc.ThumbHeight, "Thumbnail bounding height, 0 for none")
	fs.IntVarP(&uc.MaxTasks, "max-tasks", "j", uc.MaxTasks, "Concurrent uploads")
	fs.DurationVar(&uc.Timeout, "timeout", uc.Timeout, "Per-request timeout for the http transport")
	fs.StringVarP(&f.transport, "transport", "t", uc.Transport, "Upload sink: http or s3")
	fs.StringVar(&f.prefix, "prefix", "uploads", "Object key prefix for the s3 transport")
	fs.StringSliceVar(&f.skipExt, "skip-ext", nil, "File extensions to leave out, e.g. tmp,part")
	fs.Int64Var(&f.maxFileSize, "max-file-size", 0, "Drop files whose processed size exceeds this many bytes, 0 for no limit")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while uploading")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Log every queue event")

	return cmd
}

func runUpload(cmd *cobra.Command, cfg *config.AppConfig, uc config.UploaderConfig, f flags, paths []string) error {
	ctx := cmd.Context()
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel}))

	shutdownTracing, err := otel.Init(ctx, "uploadq", logger)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(ctx) }()

	tr, err := newTransport(cmd, cfg, uc, f)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	met, err := metrics.New(reg)
	if err != nil {
		return err
	}
	if f.metricsAddr != "" {
		srv := &http.Server{Addr: f.metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", slog.String("error", err.Error()))
			}
		}()
		defer srv.Close()
	}

	opts := uploader.DefaultOptions()
	opts.URL = uc.URL
	opts.Headers = uc.Headers
	opts.Meta = uc.Meta
	opts.FinalImageMime = uc.FinalImageMime
	opts.MaxImageWidth = uc.MaxImageWidth
	opts.MaxImageHeight = uc.MaxImageHeight
	opts.Quality = uc.Quality
	opts.ThumbWidth = uc.ThumbWidth
	opts.ThumbHeight = uc.ThumbHeight
	opts.MaxTasks = uc.MaxTasks
	opts.EndDebounce = uc.EndDebounce
	opts.Metrics = met

	sum := newSummary()
	up, err := uploader.New(opts, tr, sum.hooks(logger, skipSet(f.skipExt), f.maxFileSize), logger)
	if err != nil {
		return err
	}
	defer up.Close()

	sources := make([]uploader.Source, 0, len(paths))
	for _, p := range paths {
		src, err := uploader.NewLocalFile(p)
		if err != nil {
			logger.Warn("skip file", slog.String("file", p), slog.String("error", err.Error()))
			sum.unreadable(p)
			continue
		}
		sources = append(sources, src)
	}

	if err := up.AddFiles(ctx, sources); err != nil {
		return err
	}
	if err := up.Wait(ctx); err != nil {
		return err
	}

	sum.print(cmd.OutOrStdout(), len(paths))
	if n := sum.failedCount(); n > 0 {
		return fmt.Errorf("%w: %d of %d", ErrUploadsFailed, n, len(paths))
	}
	return nil
}

func newTransport(cmd *cobra.Command, cfg *config.AppConfig, uc config.UploaderConfig, f flags) (transport.Transport, error) {
	switch f.transport {
	case transportHTTP:
		if uc.URL == "" {
			return nil, errors.New("--url is required for the http transport")
		}
		return transport.NewHTTP(uc.Timeout), nil
	case transportS3:
		store, err := storage.NewMinIO(cmd.Context(), cfg.MinIO)
		if err != nil {
			return nil, err
		}
		return transport.NewObjectStore(store, f.prefix, cfg.MinIO.PresignExpiry), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", f.transport)
	}
}

func skipSet(exts []string) map[string]bool {
	if len(exts) == 0 {
		return nil
	}
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))] = true
	}
	return set
}
