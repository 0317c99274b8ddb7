package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	mimeSVG = "image/svg+xml"

	defaultSVGFallbackWidth  = 1024
	defaultSVGFallbackHeight = 1024

	// DefaultMaxInputPixels is 16383x16383, the largest input decoded unless configured otherwise
	DefaultMaxInputPixels int64 = 16383 * 16383
)

// ErrTooManyPixels is returned for images whose declared size exceeds the pixel limit
var ErrTooManyPixels = errors.New("input image exceeds pixel limit")

// Metadata describes an image without its pixel data
type Metadata struct {
	Width  int
	Height int
	Format string
}

// Codec decodes, resizes and encodes in-memory images.
// A Codec holds no per-image state and is safe for concurrent use.
type Codec struct {
	filter            imaging.ResampleFilter
	filterName        string
	svgFallbackWidth  int
	svgFallbackHeight int
	maxInputPixels    int64
}

// Option configures a Codec
type Option func(*Codec)

// WithResampleFilter selects the filter used by Resize.
// Unknown names select Lanczos.
func WithResampleFilter(name string) Option {
	return func(c *Codec) {
		c.filterName, c.filter = lookupFilter(name)
	}
}

// WithSVGFallbackSize sets the render size for SVG uploads that lack explicit dimensions
func WithSVGFallbackSize(width, height int) Option {
	return func(c *Codec) {
		c.svgFallbackWidth = width
		c.svgFallbackHeight = height
	}
}

// WithMaxInputPixels limits width*height of accepted images. Zero disables the limit.
func WithMaxInputPixels(limit int64) Option {
	return func(c *Codec) {
		c.maxInputPixels = limit
	}
}

// NewCodec creates a codec with Lanczos resampling and the default pixel limit
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		filter:            imaging.Lanczos,
		filterName:        "lanczos",
		svgFallbackWidth:  defaultSVGFallbackWidth,
		svgFallbackHeight: defaultSVGFallbackHeight,
		maxInputPixels:    DefaultMaxInputPixels,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FilterName returns the name of the active resample filter
func (c *Codec) FilterName() string {
	return c.filterName
}

// MaxInputPixels returns the active pixel limit, 0 when unlimited
func (c *Codec) MaxInputPixels() int64 {
	return c.maxInputPixels
}

func (c *Codec) checkPixelLimit(width, height int) error {
	if c.maxInputPixels <= 0 {
		return nil
	}
	if int64(width)*int64(height) > c.maxInputPixels {
		return fmt.Errorf("%w: %dx%d is more than %d pixels", ErrTooManyPixels, width, height, c.maxInputPixels)
	}
	return nil
}

// DecodeMetadata reads the dimensions of the image without decoding its pixels.
// The declared MIME type is only consulted to route SVG documents to the vector renderer.
func (c *Codec) DecodeMetadata(data []byte, mimeType string) (Metadata, error) {
	if isSVGMIMEType(mimeType) {
		w, h, err := c.svgRenderSize(data)
		if err != nil {
			return Metadata{}, err
		}
		if err := c.checkPixelLimit(w, h); err != nil {
			return Metadata{}, err
		}
		return Metadata{Width: w, Height: h, Format: "svg"}, nil
	}

	cfg, format, err := c.decodeRasterConfig(data)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// decodeRasterConfig reads the image header and enforces the pixel limit
func (c *Codec) decodeRasterConfig(data []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		slog.Debug("DecodeMetadata: failed to read image header", "error", err, "input_size_bytes", len(data))
		return image.Config{}, "", fmt.Errorf("failed to read image metadata: %w", err)
	}
	if err := c.checkPixelLimit(cfg.Width, cfg.Height); err != nil {
		slog.Debug("DecodeMetadata: image too large", "format", format, "error", err, "input_size_bytes", len(data))
		return image.Config{}, "", err
	}
	return cfg, format, nil
}

// Decode fully decodes the image
func (c *Codec) Decode(data []byte, mimeType string) (image.Image, error) {
	if isSVGMIMEType(mimeType) {
		w, h, err := c.svgRenderSize(data)
		if err != nil {
			return nil, err
		}
		if err := c.checkPixelLimit(w, h); err != nil {
			return nil, err
		}
		return renderSVG(data, w, h)
	}

	if _, _, err := c.decodeRasterConfig(data); err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	slog.Debug("Decode: decoded raster image",
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())
	return img, nil
}

// Resize scales the image to exactly width pixels, deriving the height from the aspect ratio
func (c *Codec) Resize(img image.Image, width int) (image.Image, error) {
	if width <= 0 {
		return nil, fmt.Errorf("resize width must be positive, got %d", width)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("cannot resize empty image %dx%d", bounds.Dx(), bounds.Dy())
	}

	// imaging derives the height (at least 1px) when it is passed as 0
	resized := imaging.Resize(img, width, 0, c.filter)
	slog.Debug("Resize: image resized",
		"original_width", bounds.Dx(),
		"original_height", bounds.Dy(),
		"width", resized.Bounds().Dx(),
		"height", resized.Bounds().Dy(),
		"filter", c.filterName)
	return resized, nil
}

func lookupFilter(name string) (string, imaging.ResampleFilter) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "nearest", "nearestneighbor":
		return "nearest", imaging.NearestNeighbor
	case "box":
		return "box", imaging.Box
	case "linear", "bilinear":
		return "linear", imaging.Linear
	case "catmullrom":
		return "catmullrom", imaging.CatmullRom
	case "mitchell", "mitchellnetravali":
		return "mitchell", imaging.MitchellNetravali
	default:
		return "lanczos", imaging.Lanczos
	}
}

func isSVGMIMEType(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt == mimeSVG
}
