//go:build govips && cgo

package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/dunamismax/pixelflow-edge/internal/domain"
)

type govipsCodec struct{}

var govipsSaveTypes = map[domain.Format]vips.ImageType{
	domain.FormatJPEG: vips.ImageTypeJPEG,
	domain.FormatPNG:  vips.ImageTypePNG,
	domain.FormatGIF:  vips.ImageTypeGIF,
	domain.FormatWebP: vips.ImageTypeWEBP,
	domain.FormatAVIF: vips.ImageTypeAVIF,
}

// Encodes reports whether the linked libvips was built with a saver for
// format. AVIF support in particular depends on libheif.
func (govipsCodec) Encodes(format domain.Format) bool {
	t, ok := govipsSaveTypes[format.Codec()]
	return ok && vips.IsTypeSupported(t)
}

type govipsImage struct {
	ref *vips.ImageRef
}

func (govipsCodec) Load(ctx context.Context, data []byte) (Image, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	params := vips.NewImportParams()
	params.NumPages.Set(-1)

	ref, err := vips.LoadImageFromBuffer(data, params)
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}
	return &govipsImage{ref: ref}, nil
}

func (img *govipsImage) Format() string {
	switch img.ref.Format() {
	case vips.ImageTypeJPEG:
		return "jpeg"
	case vips.ImageTypePNG:
		return "png"
	case vips.ImageTypeGIF:
		return "gif"
	case vips.ImageTypeWEBP:
		return "webp"
	case vips.ImageTypeAVIF:
		return "avif"
	case vips.ImageTypeHEIF:
		return "heif"
	case vips.ImageTypeTIFF:
		return "tiff"
	case vips.ImageTypeSVG:
		return "svg"
	default:
		return "unknown"
	}
}

func (img *govipsImage) Width() int { return img.ref.Width() }

func (img *govipsImage) Height() int { return img.ref.PageHeight() }

func (img *govipsImage) Frames() int { return img.ref.Pages() }

func (img *govipsImage) Close() { img.ref.Close() }

// Resize keeps to operations that track page height so every frame of an
// animated source gets the same geometry.
func (img *govipsImage) Resize(width, height int, fit domain.Fit) error {
	srcW, srcH := img.Width(), img.Height()
	if srcW <= 0 || srcH <= 0 {
		return fmt.Errorf("source image has invalid dimensions")
	}

	if width == 0 || height == 0 {
		return img.scaleTo(targetSize(srcW, srcH, width, height))
	}

	hScale := float64(width) / float64(srcW)
	vScale := float64(height) / float64(srcH)

	switch fit {
	case domain.FitCover:
		w, h := scaledSize(srcW, srcH, math.Max(hScale, vScale))
		w, h = max(w, width), max(h, height)
		if err := img.scaleTo(w, h); err != nil {
			return err
		}
		if err := img.ref.ExtractArea((w-width)/2, (h-height)/2, width, height); err != nil {
			return fmt.Errorf("crop image: %w", err)
		}
		return nil
	case domain.FitContain:
		w, h := scaledSize(srcW, srcH, math.Min(hScale, vScale))
		w, h = min(w, width), min(h, height)
		if err := img.scaleTo(w, h); err != nil {
			return err
		}
		if err := img.ref.Embed((width-w)/2, (height-h)/2, width, height, vips.ExtendBlack); err != nil {
			return fmt.Errorf("letterbox image: %w", err)
		}
		return nil
	case domain.FitFill:
		return img.scaleTo(width, height)
	case domain.FitInside:
		return img.scaleTo(scaledSize(srcW, srcH, math.Min(hScale, vScale)))
	case domain.FitOutside:
		return img.scaleTo(scaledSize(srcW, srcH, math.Max(hScale, vScale)))
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFit, fit)
	}
}

// scaleTo resizes every page to exactly w by h.
func (img *govipsImage) scaleTo(w, h int) error {
	return wrapResize(img.ref.ResizeWithVScale(
		float64(w)/float64(img.Width()),
		float64(h)/float64(img.Height()),
		vips.KernelLanczos3,
	))
}

func wrapResize(err error) error {
	if err != nil {
		return fmt.Errorf("resize image: %w", err)
	}
	return nil
}

func (img *govipsImage) Encode(format domain.Format, quality int) ([]byte, error) {
	quality = domain.ClampQuality(quality)

	switch format.Codec() {
	case domain.FormatJPEG:
		params := vips.NewJpegExportParams()
		params.Quality = quality
		data, _, err := img.ref.ExportJpeg(params)
		if err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		return data, nil
	case domain.FormatPNG:
		params := vips.NewPngExportParams()
		params.Compression = domain.PNGCompression(quality)
		data, _, err := img.ref.ExportPng(params)
		if err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return data, nil
	case domain.FormatGIF:
		data, _, err := img.ref.ExportGIF(vips.NewGifExportParams())
		if err != nil {
			return nil, fmt.Errorf("encode gif: %w", err)
		}
		return data, nil
	case domain.FormatWebP:
		params := vips.NewWebpExportParams()
		params.Quality = quality
		data, _, err := img.ref.ExportWebp(params)
		if err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
		return data, nil
	case domain.FormatAVIF:
		params := vips.NewAvifExportParams()
		params.Quality = quality
		data, _, err := img.ref.ExportAvif(params)
		if err != nil {
			return nil, fmt.Errorf("encode avif: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
