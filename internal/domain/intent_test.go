package domain

import "testing"

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Intent
	}{
		{
			name: "no parameters",
			url:  "https://cdn.example.com/photos/cat.jpg",
			want: Intent{Quality: 85},
		},
		{
			name: "width only defaults fit to cover",
			url:  "https://cdn.example.com/cat.jpg?width=320",
			want: Intent{Width: 320, Fit: FitCover, Quality: 85},
		},
		{
			name: "full set",
			url:  "https://cdn.example.com/cat.jpg?width=320&height=200&fit=contain&quality=60&format=webp&auto=avif",
			want: Intent{Width: 320, Height: 200, Fit: FitContain, Quality: 60, Format: "webp", HasFormat: true, Auto: AutoAVIF},
		},
		{
			name: "malformed numbers degrade to defaults",
			url:  "https://cdn.example.com/cat.jpg?width=abc&height=-4&quality=high",
			want: Intent{Quality: 85},
		},
		{
			name: "fit passes through verbatim",
			url:  "https://cdn.example.com/cat.jpg?height=90&fit=Stretch",
			want: Intent{Height: 90, Fit: Fit("Stretch"), Quality: 85},
		},
		{
			name: "fit without resize is kept but unused",
			url:  "https://cdn.example.com/cat.jpg?fit=inside",
			want: Intent{Fit: FitInside, Quality: 85},
		},
		{
			name: "format keeps case",
			url:  "https://cdn.example.com/cat.jpg?format=PNG",
			want: Intent{Quality: 85, Format: "PNG", HasFormat: true},
		},
		{
			name: "empty format is still explicit",
			url:  "https://cdn.example.com/cat.jpg?format=",
			want: Intent{Quality: 85, HasFormat: true},
		},
		{
			name: "unknown auto value is ignored",
			url:  "https://cdn.example.com/cat.jpg?auto=jxl",
			want: Intent{Quality: 85},
		},
		{
			name: "quality is clamped",
			url:  "https://cdn.example.com/cat.jpg?quality=400",
			want: Intent{Quality: 100},
		},
		{
			name: "unparseable url",
			url:  "://%%%",
			want: Intent{Quality: 85},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseIntent(tt.url)
			if got != tt.want {
				t.Fatalf("ParseIntent(%q) = %+v, want %+v", tt.url, got, tt.want)
			}
		})
	}
}

func TestIntentResize(t *testing.T) {
	if (Intent{}).Resize() {
		t.Fatal("expected no resize without dimensions")
	}
	if !(Intent{Height: 10}).Resize() {
		t.Fatal("expected resize with height only")
	}
}
