package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func writeTestPNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, "input.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestRunTransform_WritesDefaultOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeTestPNG(t, dir, 100, 50)

	var stdout bytes.Buffer
	err := runTransform(context.Background(), transformOptions{input: input, query: "width=40"}, zerolog.Nop(), &stdout)
	if err != nil {
		t.Fatalf("run transform: %v", err)
	}

	out := filepath.Join(dir, "input.out.png")
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 40 || cfg.Height != 20 {
		t.Fatalf("expected 40x20, got %dx%d", cfg.Width, cfg.Height)
	}
	if !strings.Contains(stdout.String(), "image/png") {
		t.Fatalf("expected summary line, got %q", stdout.String())
	}
}

func TestRunTransform_UnknownFormatFails(t *testing.T) {
	dir := t.TempDir()
	input := writeTestPNG(t, dir, 10, 10)

	err := runTransform(context.Background(), transformOptions{input: input, query: "format=bmp", output: filepath.Join(dir, "x.bmp")}, zerolog.Nop(), &bytes.Buffer{})
	if !errors.Is(err, ErrTransformFailed) {
		t.Fatalf("expected ErrTransformFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "Unknown format bmp") {
		t.Fatalf("expected message in error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "x.bmp")); !os.IsNotExist(statErr) {
		t.Fatal("expected no output file")
	}
}

func TestLocalRequestURL(t *testing.T) {
	got := localRequestURL("/tmp/photos/cat.jpg", "?width=10&format=png")
	if got != "file:///cat.jpg?width=10&format=png" {
		t.Fatalf("unexpected url %q", got)
	}
}
