package compression

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/jo-hoe/imgcompressor/internal/backend/imagecodec"
)

// SizeThreshold is the factor by which the encoded image may exceed the
// original before the original bytes are returned instead.
const SizeThreshold = 1.05

// Codec is the image capability the pipeline relies on
type Codec interface {
	DecodeMetadata(data []byte, mimeType string) (imagecodec.Metadata, error)
	Decode(data []byte, mimeType string) (image.Image, error)
	Resize(img image.Image, width int) (image.Image, error)
	Encode(img image.Image, format imagecodec.Format, quality int) ([]byte, error)
}

// Outcome classifies a finished compression
type Outcome string

const (
	OutcomeCompressed Outcome = "compressed"
	OutcomeOriginal   Outcome = "original"
	OutcomeFailed     Outcome = "failed"
)

// Recorder receives one observation per Compress call
type Recorder interface {
	Observe(format imagecodec.Format, outcome Outcome, originalSize int64, outputSize int, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) Observe(imagecodec.Format, Outcome, int64, int, time.Duration) {}

// Upload is one image as received from the caller
type Upload struct {
	Data     []byte
	MIMEType string
	Filename string
	Size     int64
}

// Result is the payload chosen for the response
type Result struct {
	Data         []byte
	Size         int
	OriginalSize int64
	Compressed   bool
	ContentType  string
	Format       imagecodec.Format
	Width        int
	Height       int
	Resized      bool
}

// Compressor runs the metadata -> resize -> encode pipeline for a single upload
type Compressor struct {
	codec    Codec
	recorder Recorder
}

// CompressorOption configures a Compressor
type CompressorOption func(*Compressor)

// WithRecorder attaches an outcome recorder
func WithRecorder(r Recorder) CompressorOption {
	return func(c *Compressor) {
		if r != nil {
			c.recorder = r
		}
	}
}

func NewCompressor(codec Codec, opts ...CompressorOption) *Compressor {
	c := &Compressor{
		codec:    codec,
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compress re-encodes the upload according to req. If the encoded image is more
// than SizeThreshold times larger than the upload, the upload bytes are returned unchanged.
func (c *Compressor) Compress(ctx context.Context, upload Upload, req Request) (*Result, error) {
	if len(upload.Data) == 0 {
		return nil, ErrNoUpload
	}

	start := time.Now()
	originalSize := upload.Size
	if originalSize <= 0 {
		originalSize = int64(len(upload.Data))
	}

	result, err := c.run(ctx, upload, req, originalSize)
	if err != nil {
		c.recorder.Observe(req.Format, OutcomeFailed, originalSize, 0, time.Since(start))
		return nil, err
	}

	outcome := OutcomeCompressed
	if !result.Compressed {
		outcome = OutcomeOriginal
	}
	c.recorder.Observe(req.Format, outcome, originalSize, result.Size, time.Since(start))
	return result, nil
}

func (c *Compressor) run(ctx context.Context, upload Upload, req Request, originalSize int64) (*Result, error) {
	meta, err := c.codec.DecodeMetadata(upload.Data, upload.MIMEType)
	if err != nil {
		return nil, &ProcessingError{Stage: StageMetadata, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ProcessingError{Stage: StageDecode, Err: err}
	}

	img, err := c.codec.Decode(upload.Data, upload.MIMEType)
	if err != nil {
		return nil, &ProcessingError{Stage: StageDecode, Err: err}
	}

	resized := false
	if req.needsResize(meta.Width) {
		if err := ctx.Err(); err != nil {
			return nil, &ProcessingError{Stage: StageResize, Err: err}
		}
		width, err := req.resizeWidth()
		if err != nil {
			return nil, &ProcessingError{Stage: StageResize, Err: err}
		}
		img, err = c.codec.Resize(img, width)
		if err != nil {
			return nil, &ProcessingError{Stage: StageResize, Err: err}
		}
		resized = true
	}

	if err := ctx.Err(); err != nil {
		return nil, &ProcessingError{Stage: StageEncode, Err: err}
	}
	quality, err := req.encoderQuality()
	if err != nil {
		return nil, &ProcessingError{Stage: StageEncode, Err: err}
	}
	encoded, err := c.codec.Encode(img, req.Format, quality)
	if err != nil {
		return nil, &ProcessingError{Stage: StageEncode, Err: err}
	}

	bounds := img.Bounds()
	if float64(len(encoded)) > float64(originalSize)*SizeThreshold {
		slog.Debug("Compress: encoded image larger than original; keeping original",
			"original_size_bytes", originalSize,
			"encoded_size_bytes", len(encoded),
			"format", req.Format.String())
		return &Result{
			Data:         upload.Data,
			Size:         len(upload.Data),
			OriginalSize: originalSize,
			Compressed:   false,
			ContentType:  originalContentType(upload.MIMEType),
			Format:       req.Format,
			Width:        meta.Width,
			Height:       meta.Height,
		}, nil
	}

	slog.Debug("Compress: compression complete",
		"original_size_bytes", originalSize,
		"compressed_size_bytes", len(encoded),
		"format", req.Format.String(),
		"quality", quality,
		"resized", resized)
	return &Result{
		Data:         encoded,
		Size:         len(encoded),
		OriginalSize: originalSize,
		Compressed:   true,
		ContentType:  req.Format.MIMEType(),
		Format:       req.Format,
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		Resized:      resized,
	}, nil
}

func originalContentType(mimeType string) string {
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}
