package imagecodec

import "strings"

// Format is an output encoding supported by the codec.
type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
	FormatWebP
)

// ParseFormat maps a user supplied format name onto a Format.
// Matching is case-insensitive but otherwise exact; anything else falls back to FormatJPEG.
func ParseFormat(name string) Format {
	switch strings.ToLower(name) {
	case "png":
		return FormatPNG
	case "webp":
		return FormatWebP
	default:
		return FormatJPEG
	}
}

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatWebP:
		return "webp"
	default:
		return "jpeg"
	}
}

// MIMEType returns the content type of images encoded in this format
func (f Format) MIMEType() string {
	return "image/" + f.String()
}
