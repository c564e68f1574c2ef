//go:build !govips || !cgo

package pipeline

import (
	"context"
	"testing"

	"github.com/dunamismax/pixelflow-edge/internal/domain"
)

func BenchmarkProcessorResize(b *testing.B) {
	source := buildTestPNG(b, 1920, 1080)
	processor, err := NewProcessor(staticFetcher{data: source}, nil)
	if err != nil {
		b.Fatalf("new processor: %v", err)
	}

	req := Request{
		Source: "ignored.png",
		Intent: domain.ParseIntent("https://cdn.example.com/ignored.png?width=640&format=jpeg&quality=82"),
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := processor.Process(context.Background(), req); err != nil {
			b.Fatalf("process: %v", err)
		}
	}
}

func BenchmarkProcessorAnimatedGIF(b *testing.B) {
	source := buildTestGIF(b, 8, 320, 240)
	processor, err := NewProcessor(staticFetcher{data: source}, nil)
	if err != nil {
		b.Fatalf("new processor: %v", err)
	}

	req := Request{
		Source: "ignored.gif",
		Intent: domain.ParseIntent("https://cdn.example.com/ignored.gif?width=160&height=160&fit=cover"),
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := processor.Process(context.Background(), req); err != nil {
			b.Fatalf("process: %v", err)
		}
	}
}
