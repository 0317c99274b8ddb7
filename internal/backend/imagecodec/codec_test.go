package imagecodec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"
)

func createTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rng := rand.New(rand.NewSource(42))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(width, height)); err != nil {
		t.Fatalf("Failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func createTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createTestImage(width, height), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode test JPEG: %v", err)
	}
	return buf.Bytes()
}

// createPNGHeader returns a PNG signature and IHDR chunk for a truecolor image of the given size
func createPNGHeader(width, height uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8
	ihdr[9] = 2

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.WriteString("IHDR")
	buf.Write(ihdr)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(append([]byte("IHDR"), ihdr...)))
	return buf.Bytes()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"png", FormatPNG},
		{"PNG", FormatPNG},
		{"webp", FormatWebP},
		{"WebP", FormatWebP},
		{" webp ", FormatJPEG},
		{"png\n", FormatJPEG},
		{"jpeg", FormatJPEG},
		{"JPEG", FormatJPEG},
		{"jpg", FormatJPEG},
		{"gif", FormatJPEG},
		{"", FormatJPEG},
		{"avif", FormatJPEG},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.expected {
				t.Errorf("Expected %s for %q, got %s", tt.expected, tt.input, got)
			}
		})
	}
}

func TestFormat_MIMEType(t *testing.T) {
	if FormatJPEG.MIMEType() != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", FormatJPEG.MIMEType())
	}
	if FormatPNG.MIMEType() != "image/png" {
		t.Errorf("Expected image/png, got %s", FormatPNG.MIMEType())
	}
	if FormatWebP.MIMEType() != "image/webp" {
		t.Errorf("Expected image/webp, got %s", FormatWebP.MIMEType())
	}
}

func TestDecodeMetadata(t *testing.T) {
	codec := NewCodec()

	meta, err := codec.DecodeMetadata(createTestPNG(t, 64, 32), "image/png")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if meta.Width != 64 || meta.Height != 32 {
		t.Errorf("Expected 64x32, got %dx%d", meta.Width, meta.Height)
	}
	if meta.Format != "png" {
		t.Errorf("Expected format png, got %s", meta.Format)
	}

	// The declared MIME type does not drive raster decoding
	meta, err = codec.DecodeMetadata(createTestJPEG(t, 40, 20), "application/octet-stream")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if meta.Format != "jpeg" || meta.Width != 40 {
		t.Errorf("Expected 40px jpeg, got %dpx %s", meta.Width, meta.Format)
	}
}

func TestDecodeMetadata_InvalidData(t *testing.T) {
	codec := NewCodec()
	if _, err := codec.DecodeMetadata([]byte("definitely not an image"), "image/jpeg"); err == nil {
		t.Error("Expected error for invalid image data")
	}
}

func TestDecode_TruncatedImage(t *testing.T) {
	codec := NewCodec()
	data := createTestPNG(t, 64, 64)
	if _, err := codec.Decode(data[:len(data)/2], "image/png"); err == nil {
		t.Error("Expected error for truncated image data")
	}
}

func TestResize_PreservesAspectRatio(t *testing.T) {
	codec := NewCodec()

	resized, err := codec.Resize(createTestImage(200, 100), 100)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if resized.Bounds().Dx() != 100 || resized.Bounds().Dy() != 50 {
		t.Errorf("Expected 100x50, got %dx%d", resized.Bounds().Dx(), resized.Bounds().Dy())
	}
}

func TestResize_Upscale(t *testing.T) {
	codec := NewCodec(WithResampleFilter("nearest"))

	resized, err := codec.Resize(createTestImage(10, 20), 30)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if resized.Bounds().Dx() != 30 || resized.Bounds().Dy() != 60 {
		t.Errorf("Expected 30x60, got %dx%d", resized.Bounds().Dx(), resized.Bounds().Dy())
	}
}

func TestResize_InvalidWidth(t *testing.T) {
	codec := NewCodec()
	for _, width := range []int{0, -1, -1920} {
		if _, err := codec.Resize(createTestImage(10, 10), width); err == nil {
			t.Errorf("Expected error for width %d", width)
		}
	}
}

func TestWithResampleFilter(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"CatmullRom", "catmullrom"},
		{"bilinear", "linear"},
		{"box", "box"},
		{"unknown", "lanczos"},
		{"", "lanczos"},
	}
	for _, tt := range tests {
		codec := NewCodec(WithResampleFilter(tt.input))
		if codec.FilterName() != tt.expected {
			t.Errorf("Expected filter %s for %q, got %s", tt.expected, tt.input, codec.FilterName())
		}
	}
}

func TestEncode_AllFormats(t *testing.T) {
	codec := NewCodec()
	img := createTestImage(48, 24)

	tests := []struct {
		format         Format
		expectedFormat string
	}{
		{FormatJPEG, "jpeg"},
		{FormatPNG, "png"},
		{FormatWebP, "webp"},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			out, err := codec.Encode(img, tt.format, 80)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("Failed to decode encoded output: %v", err)
			}
			if format != tt.expectedFormat {
				t.Errorf("Expected format %s, got %s", tt.expectedFormat, format)
			}
			if cfg.Width != 48 || cfg.Height != 24 {
				t.Errorf("Expected 48x24, got %dx%d", cfg.Width, cfg.Height)
			}
		})
	}
}

func TestEncode_QualityAffectsSize(t *testing.T) {
	codec := NewCodec()
	img := createTestImage(128, 128)

	for _, format := range []Format{FormatJPEG, FormatWebP} {
		low, err := codec.Encode(img, format, 40)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		high, err := codec.Encode(img, format, 95)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(low) >= len(high) {
			t.Errorf("%s: expected quality 40 (%d bytes) to be smaller than quality 95 (%d bytes)", format, len(low), len(high))
		}
	}
}

func TestPixelLimit_RejectsOversizedInput(t *testing.T) {
	codec := NewCodec()
	inputs := []struct {
		name     string
		data     []byte
		mimeType string
	}{
		{"png header", createPNGHeader(60000, 60000), "image/png"},
		{"svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="60000" height="60000"/>`), "image/svg+xml"},
		{"svg with overflowing width", []byte(`<svg width="99999999999999999999999" height="2"/>`), "image/svg+xml"},
	}

	for _, in := range inputs {
		t.Run(in.name, func(t *testing.T) {
			if _, err := codec.DecodeMetadata(in.data, in.mimeType); !errors.Is(err, ErrTooManyPixels) {
				t.Errorf("Expected ErrTooManyPixels from DecodeMetadata, got %v", err)
			}
			if _, err := codec.Decode(in.data, in.mimeType); !errors.Is(err, ErrTooManyPixels) {
				t.Errorf("Expected ErrTooManyPixels from Decode, got %v", err)
			}
		})
	}
}

func TestPixelLimit_Boundary(t *testing.T) {
	codec := NewCodec(WithMaxInputPixels(64 * 32))

	if _, err := codec.DecodeMetadata(createTestPNG(t, 64, 32), "image/png"); err != nil {
		t.Errorf("Expected image at the limit to pass, got %v", err)
	}
	if _, err := codec.DecodeMetadata(createTestPNG(t, 64, 33), "image/png"); !errors.Is(err, ErrTooManyPixels) {
		t.Errorf("Expected ErrTooManyPixels one row over the limit, got %v", err)
	}
}

func TestPixelLimit_Disabled(t *testing.T) {
	codec := NewCodec(WithMaxInputPixels(0))
	if codec.MaxInputPixels() != 0 {
		t.Fatalf("Expected limit 0, got %d", codec.MaxInputPixels())
	}

	meta, err := codec.DecodeMetadata(createPNGHeader(60000, 60000), "image/png")
	if err != nil {
		t.Fatalf("Expected header to be read without a limit, got %v", err)
	}
	if meta.Width != 60000 || meta.Height != 60000 {
		t.Errorf("Expected 60000x60000, got %dx%d", meta.Width, meta.Height)
	}
}

func TestNewCodec_DefaultPixelLimit(t *testing.T) {
	if got := NewCodec().MaxInputPixels(); got != 268402689 {
		t.Errorf("Expected default limit 268402689, got %d", got)
	}
}
