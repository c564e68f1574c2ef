package ratelimit

import "github.com/dunamismax/pixelflow-edge/internal/domain"

const (
	megapixel       = 1_000_000
	largeAreaPixels = 4 * megapixel
)

// Cost prices one transformation in budget tokens. A native passthrough
// costs 1; resizing, transcoding, large targets and avif encodes add to it.
func Cost(intent domain.Intent) int64 {
	cost := int64(1)

	if intent.Resize() {
		cost++
		switch area := targetArea(intent); {
		case area > largeAreaPixels:
			cost += 2
		case area > megapixel:
			cost++
		}
	}

	if intent.HasFormat || intent.Auto != domain.AutoNone {
		cost++
	}
	if intent.Format == string(domain.FormatAVIF) || intent.Auto == domain.AutoAVIF {
		cost += 2
	}
	return cost
}

// targetArea assumes a square box when only one axis is given; the source
// aspect ratio is unknown before the fetch.
func targetArea(intent domain.Intent) int64 {
	w, h := int64(intent.Width), int64(intent.Height)
	switch {
	case w > 0 && h > 0:
		return w * h
	case w > 0:
		return w * w
	default:
		return h * h
	}
}
