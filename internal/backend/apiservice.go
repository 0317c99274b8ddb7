package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/jo-hoe/imgcompressor/internal/backend/compression"
	"github.com/jo-hoe/imgcompressor/internal/backend/imagecodec"
	"github.com/jo-hoe/imgcompressor/internal/common"
	"github.com/jo-hoe/imgcompressor/internal/core"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	healthMessage = "Image compressor backend is running"
	keptNote      = "Original image kept (already optimized)"

	messageNoFile          = "No file uploaded"
	messageFileTooLarge    = "File too large"
	messageCompressionFail = "Compression failed"

	formFieldFile = "file"
)

type healthResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type APIService struct {
	config     *core.ServiceConfig
	compressor *compression.Compressor
	defaults   compression.Defaults
	registry   *prometheus.Registry
}

func NewAPIService(config *core.ServiceConfig) *APIService {
	codec := imagecodec.NewCodec(
		imagecodec.WithResampleFilter(config.Compression.ResampleFilter),
		imagecodec.WithSVGFallbackSize(config.Compression.SVGFallbackWidth, config.Compression.SVGFallbackHeight),
		imagecodec.WithMaxInputPixels(config.Compression.MaxInputPixels),
	)
	slog.Info("NewAPIService: image codec configured",
		"resample_filter", codec.FilterName(),
		"max_input_pixels", codec.MaxInputPixels())
	registry := newMetricsRegistry()

	return &APIService{
		config:     config,
		compressor: compression.NewCompressor(codec, compression.WithRecorder(newCompressionMetrics(registry))),
		defaults: compression.Defaults{
			Quality:  config.Compression.DefaultQuality,
			Format:   imagecodec.ParseFormat(config.Compression.DefaultFormat),
			MaxWidth: config.Compression.DefaultMaxWidth,
		},
		registry: registry,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/", s.probeHandler)

	e.POST("/api/images/compress", s.compressHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

func (s *APIService) probeHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, healthResponse{OK: true, Message: healthMessage})
}

func (s *APIService) compressHandler(ctx echo.Context) error {
	requestID := ctx.Response().Header().Get(echo.HeaderXRequestID)

	file, err := ctx.FormFile(formFieldFile)
	if err != nil {
		if isEntityTooLarge(err) {
			slog.Warn("compressHandler: request body exceeds limit",
				"status", http.StatusRequestEntityTooLarge, "request_id", requestID)
			return ctx.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: messageFileTooLarge})
		}
		slog.Warn("compressHandler: no file in request",
			"status", http.StatusBadRequest, "error", err, "request_id", requestID)
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: messageNoFile})
	}

	if file.Size > s.config.MaxUploadBytes {
		slog.Warn("compressHandler: uploaded file exceeds limit",
			"status", http.StatusRequestEntityTooLarge, "size_bytes", file.Size,
			"limit_bytes", s.config.MaxUploadBytes, "filename", file.Filename, "request_id", requestID)
		return ctx.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: messageFileTooLarge})
	}

	data, err := readUpload(file)
	if err != nil {
		slog.Error("compressHandler: failed to read uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename, "request_id", requestID)
		return ctx.JSON(http.StatusInternalServerError, errorResponse{Error: messageCompressionFail})
	}

	upload := compression.Upload{
		Data:     data,
		MIMEType: file.Header.Get(echo.HeaderContentType),
		Filename: common.BaseFilename(file.Filename),
		Size:     int64(len(data)),
	}
	req := compression.NewRequest(s.defaults, map[string]string{
		compression.ParamQuality:  ctx.FormValue(compression.ParamQuality),
		compression.ParamFormat:   ctx.FormValue(compression.ParamFormat),
		compression.ParamMaxWidth: ctx.FormValue(compression.ParamMaxWidth),
	})

	result, err := s.compressor.Compress(ctx.Request().Context(), upload, req)
	if err != nil {
		return s.writeCompressionError(ctx, err, upload, requestID)
	}

	slog.Debug("compressHandler: image processed",
		"filename", upload.Filename,
		"compressed", result.Compressed,
		"resized", result.Resized,
		"width", result.Width,
		"height", result.Height,
		"original_size_bytes", result.OriginalSize,
		"output_size_bytes", result.Size,
		"request_id", requestID)

	header := ctx.Response().Header()
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="compressed-%s"`, upload.Filename))
	if result.Compressed {
		header.Set(HeaderOriginalSize, strconv.FormatInt(result.OriginalSize, 10))
		header.Set(HeaderCompressedSize, strconv.Itoa(result.Size))
	} else {
		header.Set(HeaderCompressionNote, keptNote)
	}

	return ctx.Blob(http.StatusOK, result.ContentType, result.Data)
}

// writeCompressionError maps pipeline errors to responses; causes are logged, never returned
func (s *APIService) writeCompressionError(ctx echo.Context, err error, upload compression.Upload, requestID string) error {
	if compression.IsInputError(err) {
		slog.Warn("compressHandler: invalid upload",
			"status", http.StatusBadRequest, "error", err, "filename", upload.Filename, "request_id", requestID)
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: messageNoFile})
	}

	stage, _ := compression.FailedStage(err)
	slog.Error("compressHandler: compression failed",
		"status", http.StatusInternalServerError,
		"stage", string(stage),
		"error", err,
		"filename", upload.Filename,
		"mime_type", upload.MIMEType,
		"size_bytes", upload.Size,
		"request_id", requestID)
	return ctx.JSON(http.StatusInternalServerError, errorResponse{Error: messageCompressionFail})
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("readUpload: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return data, nil
}

func isEntityTooLarge(err error) bool {
	var httpErr *echo.HTTPError
	return errors.As(err, &httpErr) && httpErr.Code == http.StatusRequestEntityTooLarge
}
