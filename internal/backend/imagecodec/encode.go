package imagecodec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"

	"github.com/chai2010/webp"
)

// Encode writes the image in the given format.
// quality applies to the lossy encoders (JPEG, WebP); PNG is always encoded
// losslessly at the best compression level.
func (c *Codec) Encode(img image.Image, format Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	bb := img.Bounds()
	// rough heuristic: 1 byte per pixel
	buf.Grow(bb.Dx() * bb.Dy())

	var err error
	switch format {
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, img)
	case FormatWebP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)})
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		slog.Error("Encode: failed to encode image", "format", format.String(), "quality", quality, "error", err)
		return nil, fmt.Errorf("failed to encode image to %s: %w", format, err)
	}

	slog.Debug("Encode: encoding complete",
		"format", format.String(),
		"quality", quality,
		"output_size_bytes", buf.Len())
	return buf.Bytes(), nil
}
