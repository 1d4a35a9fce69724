package uploader

import (
	"maps"
	"time"

	"uploadq/internal/imaging"
	"uploadq/internal/metrics"
)

const (
	DefaultMaxTasks    = 3
	DefaultEndDebounce = 200 * time.Millisecond
)

// Options configures an Uploader.
type Options struct {
	// URL is handed to the transport with every request.
	URL     string
	Headers map[string]string
	// Meta is attached to every payload.
	Meta map[string]any

	// FinalImageMime is "original", "image/jpeg" or "image/webp". Any other
	// value means "image/jpeg".
	FinalImageMime string
	MaxImageWidth  int
	MaxImageHeight int
	// Quality in [0,100]; negative uses imaging.DefaultQuality. DefaultOptions
	// sets it, a zero Options encodes at quality 0.
	Quality     int
	ThumbWidth  int
	ThumbHeight int

	// MaxTasks bounds the number of concurrent transport calls. Values below
	// one use DefaultMaxTasks.
	MaxTasks int

	// AutoStart starts draining at the end of every AddFiles call.
	AutoStart bool

	// EndDebounce is the quiet period after the queue drains before OnEnd
	// fires. Zero uses DefaultEndDebounce, a negative value fires OnEnd as
	// soon as the queue drains.
	EndDebounce time.Duration

	// Encoder renders normalized images; nil uses imaging.CanvasEncoder.
	Encoder imaging.Encoder
	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		FinalImageMime: string(imaging.FormatJPEG),
		Quality:        imaging.DefaultQuality,
		MaxTasks:       DefaultMaxTasks,
		AutoStart:      true,
		EndDebounce:    DefaultEndDebounce,
	}
}

func (o Options) withDefaults() Options {
	o.FinalImageMime = string(imaging.ParseFormat(o.FinalImageMime))
	if o.Quality < 0 {
		o.Quality = imaging.DefaultQuality
	}
	o.Quality = min(o.Quality, 100)
	if o.MaxTasks < 1 {
		o.MaxTasks = DefaultMaxTasks
	}
	if o.EndDebounce == 0 {
		o.EndDebounce = DefaultEndDebounce
	}
	o.MaxImageWidth = max(o.MaxImageWidth, 0)
	o.MaxImageHeight = max(o.MaxImageHeight, 0)
	o.ThumbWidth = max(o.ThumbWidth, 0)
	o.ThumbHeight = max(o.ThumbHeight, 0)
	o.Headers = maps.Clone(o.Headers)
	o.Meta = maps.Clone(o.Meta)
	return o
}

func (o Options) imaging() imaging.Options {
	return imaging.Options{
		MaxWidth:    o.MaxImageWidth,
		MaxHeight:   o.MaxImageHeight,
		Format:      imaging.Format(o.FinalImageMime),
		Quality:     o.Quality,
		ThumbWidth:  o.ThumbWidth,
		ThumbHeight: o.ThumbHeight,
	}
}
