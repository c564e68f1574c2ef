package domain

import (
	"net/url"
	"strconv"
	"strings"
)

const DefaultQuality = 85

// Fit is the policy reconciling a requested box with the source aspect ratio.
type Fit string

const (
	FitCover   Fit = "cover"
	FitContain Fit = "contain"
	FitFill    Fit = "fill"
	FitInside  Fit = "inside"
	FitOutside Fit = "outside"
)

func (f Fit) Valid() bool {
	switch f {
	case FitCover, FitContain, FitFill, FitInside, FitOutside:
		return true
	default:
		return false
	}
}

// Auto selects an opt-in modern codec to negotiate against the Accept header.
type Auto string

const (
	AutoNone Auto = ""
	AutoWebP Auto = "webp"
	AutoAVIF Auto = "avif"
)

// Intent is the transformation requested by one URL. Zero Width or Height means
// the axis is unconstrained; both zero means no resize.
type Intent struct {
	Width   int
	Height  int
	Fit     Fit
	Quality int
	Format  string
	Auto    Auto

	// HasFormat is set when the format parameter was present, even if empty.
	HasFormat bool
}

func (i Intent) Resize() bool {
	return i.Width > 0 || i.Height > 0
}

// ParseIntent reads transformation parameters from a request URL. Malformed
// values fall back to defaults; it never fails.
func ParseIntent(rawURL string) Intent {
	intent := Intent{Quality: DefaultQuality}

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return intent
	}
	q := u.Query()

	intent.Width = positiveInt(q.Get("width"))
	intent.Height = positiveInt(q.Get("height"))

	if q.Has("fit") {
		intent.Fit = Fit(q.Get("fit"))
	}
	if intent.Resize() && intent.Fit == "" {
		intent.Fit = FitCover
	}

	if quality, err := strconv.Atoi(strings.TrimSpace(q.Get("quality"))); err == nil {
		intent.Quality = ClampQuality(quality)
	}

	if q.Has("format") {
		intent.Format = q.Get("format")
		intent.HasFormat = true
	}

	switch Auto(q.Get("auto")) {
	case AutoWebP:
		intent.Auto = AutoWebP
	case AutoAVIF:
		intent.Auto = AutoAVIF
	}

	return intent
}

func positiveInt(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
