package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"uploadq/internal/model"
	"uploadq/internal/uploader"
)

// summary tallies queue events for the end-of-run report.
type summary struct {
	mu       sync.Mutex
	queued   int
	filtered []string
	uploaded []model.FileRecord
	failed   []model.FileRecord
	broken   []string
}

func newSummary() *summary {
	return &summary{}
}

func (s *summary) unreadable(path string) {
	s.mu.Lock()
	s.broken = append(s.broken, path)
	s.mu.Unlock()
}

func (s *summary) failedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failed) + len(s.broken)
}

// hooks logs queue events and records outcomes. Files with an extension in
// skip are filtered before processing, files larger than maxSize after it.
func (s *summary) hooks(logger *slog.Logger, skip map[string]bool, maxSize int64) uploader.Hooks {
	return uploader.HookFuncs{
		BeforeFileProcessingFunc: func(rec *model.FileRecord) bool {
			if skip[strings.ToLower(rec.OrigFileExt)] {
				s.filter(displayName(*rec), "extension")
				return false
			}
			return true
		},
		AfterFileProcessingFunc: func(rec *model.FileRecord) bool {
			if maxSize > 0 && rec.FileSize > maxSize {
				s.filter(displayName(*rec), "size")
				return false
			}
			return true
		},
		OnFileAddedFunc: func(rec model.FileRecord) {
			s.mu.Lock()
			s.queued++
			s.mu.Unlock()
			logger.Debug("file queued",
				slog.String("guid", rec.GUID),
				slog.String("file", displayName(rec)),
				slog.String("mime", rec.FileMime),
				slog.Int64("size", rec.FileSize),
			)
		},
		OnStartFunc: func() {
			logger.Info("upload started")
		},
		OnFileStartFunc: func(rec model.FileRecord) {
			logger.Debug("file upload started", slog.String("guid", rec.GUID), slog.String("file", displayName(rec)))
		},
		OnProgressFunc: func(rec model.FileRecord) {
			logger.Debug("progress", slog.String("file", displayName(rec)), slog.Int("percent", rec.Progress))
		},
		OnFileUploadedFunc: func(rec model.FileRecord) {
			s.mu.Lock()
			s.uploaded = append(s.uploaded, rec)
			s.mu.Unlock()
			logger.Info("file uploaded", slog.String("file", displayName(rec)), slog.String("url", rec.URL))
		},
		OnUploadErrorFunc: func(rec model.FileRecord) {
			s.mu.Lock()
			s.failed = append(s.failed, rec)
			s.mu.Unlock()
			logger.Warn("file upload failed", slog.String("file", displayName(rec)), slog.String("error", rec.Error))
		},
		OnEndFunc: func() {
			logger.Info("upload finished")
		},
	}
}

func (s *summary) filter(name, reason string) {
	s.mu.Lock()
	s.filtered = append(s.filtered, name+" ("+reason+")")
	s.mu.Unlock()
}

func (s *summary) print(w io.Writer, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sort.Slice(s.uploaded, func(i, j int) bool { return displayName(s.uploaded[i]) < displayName(s.uploaded[j]) })
	sort.Slice(s.failed, func(i, j int) bool { return displayName(s.failed[i]) < displayName(s.failed[j]) })

	for _, r := range s.uploaded {
		fmt.Fprintf(w, "ok      %s -> %s\n", displayName(r), r.URL)
	}
	for _, r := range s.failed {
		fmt.Fprintf(w, "failed  %s: %s\n", displayName(r), r.Error)
	}
	for _, p := range s.broken {
		fmt.Fprintf(w, "failed  %s: unreadable\n", p)
	}
	for _, name := range s.filtered {
		fmt.Fprintf(w, "skipped %s\n", name)
	}
	skipped := total - s.queued - len(s.broken)
	fmt.Fprintf(w, "%d files: %d uploaded, %d failed, %d skipped\n",
		total, len(s.uploaded), len(s.failed)+len(s.broken), skipped)
}

func displayName(rec model.FileRecord) string {
	if rec.OrigFileExt == "" {
		return rec.OrigFileName
	}
	return rec.OrigFileName + "." + rec.OrigFileExt
}
