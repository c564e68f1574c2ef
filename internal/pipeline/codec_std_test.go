//go:build !govips || !cgo

package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dunamismax/pixelflow-edge/internal/domain"
)

func TestStdlibProcessor_FileInTransformBytesOut(t *testing.T) {
	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "input.png")
	if err := os.WriteFile(inputPath, buildTestPNG(t, 240, 120), 0o644); err != nil {
		t.Fatalf("write input image: %v", err)
	}

	processor, err := NewProcessor(LocalFileFetcher{}, nil)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	result, err := processor.Process(context.Background(), Request{
		Source: inputPath,
		Intent: domain.ParseIntent("https://cdn.example.com/input.png?width=80&format=jpeg"),
	})
	if err != nil {
		t.Fatalf("process request: %v", err)
	}

	if result.Format != domain.FormatJPEG {
		t.Fatalf("expected jpeg output format, got %s", result.Format)
	}
	verifyImageSize(t, result.Data, "jpeg", 80, 40)
}

func TestStdlibProcessor_NoResizeKeepsDimensions(t *testing.T) {
	processor, err := NewProcessor(staticFetcher{data: buildTestPNG(t, 64, 48)}, nil)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	result, err := processor.Process(context.Background(), Request{
		Source: "ignored",
		Intent: domain.ParseIntent("https://cdn.example.com/input.png?fit=contain&quality=40"),
	})
	if err != nil {
		t.Fatalf("process request: %v", err)
	}

	if result.Format != domain.FormatPNG {
		t.Fatalf("expected native png format, got %s", result.Format)
	}
	verifyImageSize(t, result.Data, "png", 64, 48)
}

func TestStdlibCodec_FitPolicies(t *testing.T) {
	tests := []struct {
		fit          domain.Fit
		width        int
		height       int
		wantW, wantH int
	}{
		{domain.FitCover, 100, 100, 100, 100},
		{domain.FitContain, 100, 100, 100, 100},
		{domain.FitFill, 100, 100, 100, 100},
		{domain.FitInside, 100, 100, 100, 50},
		{domain.FitOutside, 100, 100, 200, 100},
		{domain.FitInside, 0, 30, 60, 30},
		{domain.FitFill, 120, 0, 120, 60},
	}

	for _, tt := range tests {
		t.Run(string(tt.fit), func(t *testing.T) {
			img, err := stdlibCodec{}.Load(context.Background(), buildTestPNG(t, 240, 120))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			defer img.Close()

			if err := img.Resize(tt.width, tt.height, tt.fit); err != nil {
				t.Fatalf("resize: %v", err)
			}
			if img.Width() != tt.wantW || img.Height() != tt.wantH {
				t.Fatalf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, img.Width(), img.Height())
			}
		})
	}
}

func TestStdlibCodec_ContainLetterboxesWithBlack(t *testing.T) {
	img, err := stdlibCodec{}.Load(context.Background(), buildTestPNG(t, 200, 100))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := img.Resize(100, 100, domain.FitContain); err != nil {
		t.Fatalf("resize: %v", err)
	}

	data, err := img.Encode(domain.FormatPNG, 85)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	r, g, b, a := decoded.At(50, 2).RGBA()
	if r != 0 || g != 0 || b != 0 || a != 0xffff {
		t.Fatalf("expected opaque black letterbox, got rgba(%d,%d,%d,%d)", r, g, b, a)
	}
}

func TestStdlibCodec_AnimatedGIFKeepsFrames(t *testing.T) {
	img, err := stdlibCodec{}.Load(context.Background(), buildTestGIF(t, 3, 40, 20))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if img.Format() != "gif" {
		t.Fatalf("expected gif native format, got %s", img.Format())
	}
	if img.Frames() != 3 {
		t.Fatalf("expected 3 frames, got %d", img.Frames())
	}

	if err := img.Resize(20, 0, domain.FitCover); err != nil {
		t.Fatalf("resize: %v", err)
	}
	data, err := img.Encode(domain.FormatGIF, 10)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	out, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(out.Image) != 3 {
		t.Fatalf("expected 3 output frames, got %d", len(out.Image))
	}
	if out.Delay[1] != 7 {
		t.Fatalf("expected frame delay to survive, got %d", out.Delay[1])
	}
	if got := out.Image[0].Bounds().Dx(); got != 20 {
		t.Fatalf("expected frame width 20, got %d", got)
	}
}

func TestStdlibCodec_ModernFormatsNeedGovips(t *testing.T) {
	img, err := stdlibCodec{}.Load(context.Background(), buildTestPNG(t, 8, 8))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	for _, format := range []domain.Format{domain.FormatWebP, domain.FormatAVIF} {
		_, err := img.Encode(format, 85)
		if err == nil || !strings.Contains(err.Error(), "govips") {
			t.Fatalf("expected govips build error for %s, got %v", format, err)
		}
	}
}

func TestStdlibProcessor_AutoFallsBackToNative(t *testing.T) {
	processor, err := NewProcessor(staticFetcher{data: buildTestPNG(t, 32, 16)}, nil)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	for _, auto := range []string{"webp", "avif"} {
		result, err := processor.Process(context.Background(), Request{
			Intent: domain.ParseIntent("https://cdn.example.com/input.png?width=16&auto=" + auto),
			Accept: "image/*",
		})
		if err != nil {
			t.Fatalf("auto=%s: %v", auto, err)
		}
		if result.Format != domain.FormatPNG {
			t.Fatalf("auto=%s: expected native png, got %s", auto, result.Format)
		}
		verifyImageSize(t, result.Data, "png", 16, 8)
	}
}

func TestStdlibCodec_GIFPreviousDisposalRestoresCanvas(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	pal := color.Palette{red, green, blue}

	solid := func(rect image.Rectangle, index uint8) *image.Paletted {
		frame := image.NewPaletted(rect, pal)
		for i := range frame.Pix {
			frame.Pix[i] = index
		}
		return frame
	}

	anim := &gif.GIF{
		Image: []*image.Paletted{
			solid(image.Rect(0, 0, 4, 4), 0),
			solid(image.Rect(0, 0, 2, 2), 1),
			solid(image.Rect(3, 3, 4, 4), 2),
		},
		Delay:    []int{5, 5, 5},
		Disposal: []byte{gif.DisposalNone, gif.DisposalPrevious, gif.DisposalNone},
		Config:   image.Config{ColorModel: pal, Width: 4, Height: 4},
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		t.Fatalf("encode gif: %v", err)
	}

	img, err := stdlibCodec{}.Load(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	frames := img.(*stdlibImage).frames

	if !sameColor(frames[1].At(0, 0), green) {
		t.Fatalf("expected frame 1 to show its own patch, got %v", frames[1].At(0, 0))
	}
	if !sameColor(frames[2].At(0, 0), red) {
		t.Fatalf("expected canvas restored before frame 2, got %v", frames[2].At(0, 0))
	}
	if !sameColor(frames[2].At(3, 3), blue) {
		t.Fatalf("expected frame 2 patch, got %v", frames[2].At(3, 3))
	}
}

func TestStdlibCodec_GIFKeepsTransparency(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 4; x < 8; x++ {
			src.Set(x, y, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	img, err := stdlibCodec{}.Load(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	data, err := img.Encode(domain.FormatGIF, 85)
	if err != nil {
		t.Fatalf("encode gif: %v", err)
	}

	out, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if _, _, _, a := out.Image[0].At(1, 1).RGBA(); a != 0 {
		t.Fatalf("expected transparent pixel, got alpha %d", a)
	}
	if _, _, _, a := out.Image[0].At(6, 6).RGBA(); a != 0xffff {
		t.Fatalf("expected opaque pixel, got alpha %d", a)
	}
	if out.Disposal[0] != gif.DisposalBackground {
		t.Fatalf("expected background disposal, got %d", out.Disposal[0])
	}
}

func sameColor(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab == bb && aa == ba
}

func TestStdlibCodec_RejectsGarbage(t *testing.T) {
	if _, err := (stdlibCodec{}).Load(context.Background(), []byte("<html>not an image</html>")); err == nil {
		t.Fatal("expected decode error")
	}
}

func verifyImageSize(t *testing.T, data []byte, wantFormat string, wantW, wantH int) {
	t.Helper()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output config: %v", err)
	}
	if format != wantFormat {
		t.Fatalf("expected %s output, got %s", wantFormat, format)
	}
	if cfg.Width != wantW || cfg.Height != wantH {
		t.Fatalf("expected %dx%d, got %dx%d", wantW, wantH, cfg.Width, cfg.Height)
	}
}
