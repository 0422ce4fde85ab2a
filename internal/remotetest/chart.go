package remotetest

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

const (
	chartWidth  = 320
	chartHeight = 160
)

var palette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
}

// renderChart plots temperature over search order, one color per city.
func renderChart(rows []search) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, chartWidth, chartHeight))
	for x := 0; x < chartWidth; x++ {
		for y := 0; y < chartHeight; y++ {
			img.Set(x, y, color.White)
		}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		lo = math.Min(lo, r.temperature)
		hi = math.Max(hi, r.temperature)
	}
	if hi == lo {
		hi = lo + 1
	}

	colors := make(map[string]color.RGBA)
	for i, r := range rows {
		c, ok := colors[r.city]
		if !ok {
			c = palette[len(colors)%len(palette)]
			colors[r.city] = c
		}
		x := 8 + i*(chartWidth-16)/max(len(rows), 1)
		y := chartHeight - 8 - int((r.temperature-lo)/(hi-lo)*float64(chartHeight-16))
		for dx := -2; dx <= 2; dx++ {
			for dy := -2; dy <= 2; dy++ {
				img.Set(x+dx, y+dy, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
