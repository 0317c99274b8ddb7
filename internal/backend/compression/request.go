package compression

import (
	"fmt"

	"github.com/jo-hoe/imgcompressor/internal/backend/imagecodec"
	"github.com/jo-hoe/imgcompressor/internal/common"
)

const (
	MinQuality = 40
	MaxQuality = 95

	DefaultQuality  = 80
	DefaultFormat   = imagecodec.FormatJPEG
	DefaultMaxWidth = 1920

	ParamQuality  = "quality"
	ParamFormat   = "format"
	ParamMaxWidth = "maxWidth"
)

// Defaults holds the values used for request parameters the caller left out
type Defaults struct {
	Quality  int
	Format   imagecodec.Format
	MaxWidth int
}

// DefaultDefaults returns quality 80, jpeg output and a 1920px width limit
func DefaultDefaults() Defaults {
	return Defaults{
		Quality:  DefaultQuality,
		Format:   DefaultFormat,
		MaxWidth: DefaultMaxWidth,
	}
}

// Request holds the normalized compression parameters.
// Quality and MaxWidth keep the parsed form value, which may be NaN or
// fractional; the pipeline rejects such values only where it has to use them.
type Request struct {
	Quality  float64
	Format   imagecodec.Format
	MaxWidth float64
}

// NewRequest builds a Request from raw parameter values.
// Quality is clamped to [MinQuality, MaxQuality], formats other than png and
// webp become jpeg and maxWidth is passed through unchecked.
func NewRequest(defaults Defaults, params map[string]string) Request {
	format := defaults.Format
	if raw := common.GetStringParam(params, ParamFormat, ""); raw != "" {
		format = imagecodec.ParseFormat(raw)
	}

	return Request{
		Quality:  ClampQuality(common.GetNumberParam(params, ParamQuality, float64(defaults.Quality))),
		Format:   format,
		MaxWidth: common.GetNumberParam(params, ParamMaxWidth, float64(defaults.MaxWidth)),
	}
}

// ClampQuality limits q to [MinQuality, MaxQuality]; NaN is left as is
func ClampQuality(q float64) float64 {
	return common.ClampFloat(q, MinQuality, MaxQuality)
}

// needsResize reports whether an image of the given width is wider than MaxWidth.
// A NaN limit never triggers a resize.
func (r Request) needsResize(width int) bool {
	return width > 0 && float64(width) > r.MaxWidth
}

func (r Request) resizeWidth() (int, error) {
	w, ok := common.IntegerValue(r.MaxWidth)
	if !ok {
		return 0, fmt.Errorf("maxWidth must be an integer, got %v", r.MaxWidth)
	}
	return w, nil
}

func (r Request) encoderQuality() (int, error) {
	q, ok := common.IntegerValue(r.Quality)
	if !ok {
		return 0, fmt.Errorf("quality must be an integer between %d and %d, got %v", MinQuality, MaxQuality, r.Quality)
	}
	return q, nil
}
