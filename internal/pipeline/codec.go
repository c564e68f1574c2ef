package pipeline

import (
	"context"
	"math"

	"github.com/dunamismax/pixelflow-edge/internal/domain"
)

// Codec loads source bytes into an editable image. Implementations are chosen
// at build time: libvips with the govips tag, pure Go otherwise.
type Codec interface {
	Load(ctx context.Context, data []byte) (Image, error)
}

// encodeSupport is implemented by codecs that can only write some formats.
type encodeSupport interface {
	Encodes(format domain.Format) bool
}

// Image is one codec session. All frames of an animated source are loaded and
// every operation applies to each of them.
type Image interface {
	// Format is the native source format as reported by the codec.
	Format() string
	Width() int
	Height() int
	Frames() int
	// Resize applies a single resize. A zero width or height is derived from
	// the aspect ratio. fit is already validated.
	Resize(width, height int, fit domain.Fit) error
	Encode(format domain.Format, quality int) ([]byte, error)
	Close()
}

// targetSize fills in a missing axis from the source aspect ratio.
func targetSize(srcW, srcH, width, height int) (int, int) {
	switch {
	case width > 0 && height > 0:
		return width, height
	case width > 0:
		return width, max(1, roundDiv(srcH*width, srcW))
	default:
		return max(1, roundDiv(srcW*height, srcH)), height
	}
}

func scaledSize(srcW, srcH int, scale float64) (int, int) {
	return max(1, int(math.Round(float64(srcW)*scale))), max(1, int(math.Round(float64(srcH)*scale)))
}

func roundDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (2*a + b) / (2 * b)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
