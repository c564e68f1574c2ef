package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/pixelflow-edge/internal/domain"
	_ "golang.org/x/image/webp"
)

type stdlibCodec struct{}

// Encodes reports the formats the pure Go encoders can write.
func (stdlibCodec) Encodes(format domain.Format) bool {
	switch format.Codec() {
	case domain.FormatJPEG, domain.FormatPNG, domain.FormatGIF:
		return true
	default:
		return false
	}
}

type stdlibImage struct {
	format string
	frames []image.Image
	delays []int
	loop   int
}

func (stdlibCodec) Load(ctx context.Context, data []byte) (Image, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}

	if format == "gif" {
		return loadGIF(data)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}
	return &stdlibImage{format: format, frames: []image.Image{src}}, nil
}

// loadGIF flattens every frame onto the logical screen so frames can be
// resized independently. Disposal methods are applied between frames.
func loadGIF(data []byte) (Image, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode source gif: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, errors.New("decode source gif: no frames")
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}

	canvas := image.NewNRGBA(bounds)
	frames := make([]image.Image, 0, len(g.Image))
	for i, frame := range g.Image {
		var disposal byte
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		var previous *image.NRGBA
		if disposal == gif.DisposalPrevious {
			previous = imaging.Clone(canvas)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		frames = append(frames, imaging.Clone(canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}

	return &stdlibImage{format: "gif", frames: frames, delays: g.Delay, loop: g.LoopCount}, nil
}

func (img *stdlibImage) Format() string { return img.format }

func (img *stdlibImage) Width() int { return img.frames[0].Bounds().Dx() }

func (img *stdlibImage) Height() int { return img.frames[0].Bounds().Dy() }

func (img *stdlibImage) Frames() int { return len(img.frames) }

func (img *stdlibImage) Close() {
	img.frames = nil
}

func (img *stdlibImage) Resize(width, height int, fit domain.Fit) error {
	srcW, srcH := img.Width(), img.Height()
	if srcW == 0 || srcH == 0 {
		return errors.New("source image has invalid dimensions")
	}

	for i, frame := range img.frames {
		out, err := fitFrame(frame, width, height, fit)
		if err != nil {
			return err
		}
		img.frames[i] = out
	}
	return nil
}

func fitFrame(src image.Image, width, height int, fit domain.Fit) (image.Image, error) {
	srcW, srcH := src.Bounds().Dx(), src.Bounds().Dy()

	if width == 0 || height == 0 {
		w, h := targetSize(srcW, srcH, width, height)
		return imaging.Resize(src, w, h, imaging.Lanczos), nil
	}

	switch fit {
	case domain.FitCover:
		return imaging.Fill(src, width, height, imaging.Center, imaging.Lanczos), nil
	case domain.FitFill:
		return imaging.Resize(src, width, height, imaging.Lanczos), nil
	case domain.FitInside:
		return scaleBy(src, math.Min(float64(width)/float64(srcW), float64(height)/float64(srcH))), nil
	case domain.FitOutside:
		return scaleBy(src, math.Max(float64(width)/float64(srcW), float64(height)/float64(srcH))), nil
	case domain.FitContain:
		inner := scaleBy(src, math.Min(float64(width)/float64(srcW), float64(height)/float64(srcH)))
		background := imaging.New(width, height, color.NRGBA{A: 255})
		return imaging.PasteCenter(background, inner), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFit, fit)
	}
}

func scaleBy(src image.Image, scale float64) image.Image {
	w, h := scaledSize(src.Bounds().Dx(), src.Bounds().Dy(), scale)
	return imaging.Resize(src, w, h, imaging.Lanczos)
}

func (img *stdlibImage) Encode(format domain.Format, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format.Codec() {
	case domain.FormatJPEG:
		if err := jpeg.Encode(&buf, img.frames[0], &jpeg.Options{Quality: domain.ClampQuality(quality)}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case domain.FormatPNG:
		encoder := png.Encoder{CompressionLevel: pngLevel(domain.PNGCompression(quality))}
		if err := encoder.Encode(&buf, img.frames[0]); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case domain.FormatGIF:
		if err := gif.EncodeAll(&buf, img.toGIF()); err != nil {
			return nil, fmt.Errorf("encode gif: %w", err)
		}
	case domain.FormatWebP, domain.FormatAVIF:
		return nil, fmt.Errorf("%s export requires govips build tag", format)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	return buf.Bytes(), nil
}

// gifPalette reserves index 0 for transparency ahead of the Plan9 colours.
var gifPalette = append(color.Palette{color.Transparent}, palette.Plan9[:255]...)

// toGIF quantizes each flattened frame. Frames cover the whole screen, so
// each one clears the previous before drawing.
func (img *stdlibImage) toGIF() *gif.GIF {
	out := &gif.GIF{LoopCount: img.loop}
	for i, frame := range img.frames {
		bounds := frame.Bounds()
		paletted := image.NewPaletted(image.Rect(0, 0, bounds.Dx(), bounds.Dy()), gifPalette)
		draw.FloydSteinberg.Draw(paletted, paletted.Bounds(), frame, bounds.Min)
		keepTransparency(paletted, frame)
		out.Image = append(out.Image, paletted)

		delay := 0
		if i < len(img.delays) {
			delay = img.delays[i]
		}
		out.Delay = append(out.Delay, delay)
		out.Disposal = append(out.Disposal, gif.DisposalBackground)
	}
	return out
}

// keepTransparency maps mostly transparent source pixels to index 0;
// dithering alone can land them on an opaque colour.
func keepTransparency(dst *image.Paletted, src image.Image) {
	origin := src.Bounds().Min
	for y := 0; y < dst.Rect.Dy(); y++ {
		for x := 0; x < dst.Rect.Dx(); x++ {
			if _, _, _, a := src.At(origin.X+x, origin.Y+y).RGBA(); a < 0x8000 {
				dst.SetColorIndex(x, y, 0)
			}
		}
	}
}

func pngLevel(effort int) png.CompressionLevel {
	switch {
	case effort <= 0:
		return png.NoCompression
	case effort <= 3:
		return png.BestSpeed
	case effort <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}
