package domain

import (
	"errors"
	"fmt"
)

// Format is a resolved output encoding. Values outside the allow-list are never
// constructed; use ParseFormat at the boundary.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatJPG  Format = "jpg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
)

var ErrUnknownFormat = errors.New("unknown format")

// EncodeParams describes how a format is encoded.
type EncodeParams struct {
	Codec          Format
	HonorsQuality  bool
	Lossless       bool
	KeepsAnimation bool
}

var encodeParams = map[Format]EncodeParams{
	FormatJPEG: {Codec: FormatJPEG, HonorsQuality: true},
	FormatJPG:  {Codec: FormatJPEG, HonorsQuality: true},
	FormatPNG:  {Codec: FormatPNG, HonorsQuality: true, Lossless: true},
	FormatGIF:  {Codec: FormatGIF, KeepsAnimation: true},
	FormatWebP: {Codec: FormatWebP, HonorsQuality: true, KeepsAnimation: true},
	FormatAVIF: {Codec: FormatAVIF, HonorsQuality: true},
}

// ParseFormat maps a format string onto the allow-list. Matching is exact:
// "PNG" is not "png".
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if _, ok := encodeParams[f]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
	}
	return f, nil
}

func (f Format) Params() EncodeParams {
	return encodeParams[f]
}

// Codec returns the canonical encoder name; jpg and jpeg share one encoder.
func (f Format) Codec() Format {
	return encodeParams[f].Codec
}

// ContentType is image/<format> using the format exactly as resolved.
func (f Format) ContentType() string {
	return "image/" + string(f)
}

func (f Format) String() string {
	return string(f)
}

// PNGCompression maps a 1-100 quality onto zlib effort 0-9.
func PNGCompression(quality int) int {
	quality = ClampQuality(quality)
	level := quality * 9 / 100
	if level > 9 {
		level = 9
	}
	return level
}

func ClampQuality(quality int) int {
	switch {
	case quality < 1:
		return 1
	case quality > 100:
		return 100
	default:
		return quality
	}
}
