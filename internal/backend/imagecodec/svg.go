package imagecodec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// attribute values are saturated here so the pixel limit can reject them
const maxSVGDimension = 1<<31 - 1

// svgRenderSize returns the explicit width/height of the SVG root element,
// or the configured fallback when either is missing.
func (c *Codec) svgRenderSize(data []byte) (int, int, error) {
	if w, h, ok := parseSvgExplicitSize(data); ok {
		return w, h, nil
	}
	if c.svgFallbackWidth <= 0 || c.svgFallbackHeight <= 0 {
		return 0, 0, fmt.Errorf("SVG fallback size not set; cannot render SVG without explicit size")
	}
	return c.svgFallbackWidth, c.svgFallbackHeight, nil
}

// renderSVG rasterizes an SVG document onto a white canvas of the given size
func renderSVG(svgData []byte, targetW, targetH int) (image.Image, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("invalid target dimensions for SVG rendering: %dx%d", targetW, targetH)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}

	icon.SetTarget(0, 0, float64(targetW), float64(targetH))

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(targetW, targetH, dst, dst.Bounds())
	dasher := rasterx.NewDasher(targetW, targetH, scanner)
	icon.Draw(dasher, 1.0)

	return dst, nil
}

// parseSvgExplicitSize extracts the width and height attributes of the <svg> start tag.
// viewBox is not treated as a pixel size.
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	n := len(data)
	if n > 8192 {
		n = 8192
	}
	s := strings.ToLower(string(data[:n]))
	i := strings.Index(s, "<svg")
	if i < 0 {
		return 0, 0, false
	}
	j := strings.Index(s[i:], ">")
	if j < 0 {
		j = len(s)
	} else {
		j = i + j
	}
	tag := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(s[i:j])

	w, wOk := parseNumericAttr(tag, "width")
	h, hOk := parseNumericAttr(tag, "height")
	if wOk && hOk {
		return w, h, true
	}
	return 0, 0, false
}

// parseNumericAttr reads the leading integer of a quoted attribute value, e.g. width="123px"
func parseNumericAttr(tag, attr string) (int, bool) {
	pos := strings.Index(tag, " "+attr+"=")
	if pos < 0 {
		return 0, false
	}
	start := pos + len(attr) + 2
	if start >= len(tag) {
		return 0, false
	}
	quote := tag[start]
	if quote != '"' && quote != '\'' {
		return 0, false
	}
	val := tag[start+1:]
	if end := strings.IndexByte(val, quote); end >= 0 {
		val = val[:end]
	}

	num := 0
	found := false
	for k := 0; k < len(val); k++ {
		ch := val[k]
		if ch >= '0' && ch <= '9' {
			found = true
			if num < maxSVGDimension {
				num = min(num*10+int(ch-'0'), maxSVGDimension)
			}
		} else if found {
			break
		} else if ch != ' ' {
			return 0, false
		}
	}
	if !found || num <= 0 {
		return 0, false
	}
	return num, true
}
