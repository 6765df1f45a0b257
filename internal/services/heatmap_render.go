package services

import (
	"image"
	"image/color"
	"io"
	"strconv"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/basicfont"
)

const (
	heatmapGradientRadius = 30
	heatmapMarkerRadius   = 6
)

// participantPalette color-codes markers by participant ordinal when the view
// shows all participants at once.
var participantPalette = []color.NRGBA{
	{R: 255, A: 204},         // red
	{G: 255, A: 204},         // green
	{B: 255, A: 204},         // blue
	{R: 255, G: 255, A: 204}, // yellow
	{R: 255, B: 255, A: 204}, // magenta
	{G: 255, B: 255, A: 204}, // cyan
	{R: 255, G: 165, A: 204}, // orange
	{R: 128, B: 128, A: 204}, // purple
}

// HeatmapOptions controls rendering. Background, when set, is scaled to the
// canvas; otherwise the heatmap is drawn on white. ShowOrdinals draws each
// participant's number on their markers, matching the legend.
type HeatmapOptions struct {
	Width        int
	Height       int
	Background   image.Image
	ShowOrdinals bool
}

// RenderHeatmap draws the aggregated first-click view: one alpha-blended red
// radial gradient per click, so density builds up purely through compositing
// where gradients overlap, then a small solid marker per click on top.
// Percentage coordinates are converted to pixels only here, at render time.
func RenderHeatmap(points []ClickPoint, opts HeatmapOptions) (image.Image, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, NewInvalidError("canvas size must be positive")
	}
	dc := gg.NewContext(opts.Width, opts.Height)
	if opts.Background != nil {
		scaled := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), opts.Background, opts.Background.Bounds(), draw.Src, nil)
		dc.DrawImage(scaled, 0, 0)
	} else {
		dc.SetRGB(1, 1, 1)
		dc.Clear()
	}

	// Gradient pass first, marker pass second, so no marker is buried under a
	// neighboring click's gradient.
	for _, p := range points {
		x, y := PixelPosition(p.X, p.Y, opts.Width, opts.Height)
		grad := gg.NewRadialGradient(x, y, 0, x, y, heatmapGradientRadius)
		grad.AddColorStop(0, color.NRGBA{R: 255, A: 153})
		grad.AddColorStop(1, color.NRGBA{R: 255, A: 0})
		dc.SetFillStyle(grad)
		dc.DrawCircle(x, y, heatmapGradientRadius)
		dc.Fill()
	}

	dc.SetFontFace(basicfont.Face7x13)
	for _, p := range points {
		x, y := PixelPosition(p.X, p.Y, opts.Width, opts.Height)
		marker := color.NRGBA{R: 255, A: 204}
		if opts.ShowOrdinals && p.Ordinal > 0 {
			marker = participantPalette[(p.Ordinal-1)%len(participantPalette)]
		}
		dc.SetColor(marker)
		dc.DrawCircle(x, y, heatmapMarkerRadius)
		dc.FillPreserve()
		dc.SetRGB(1, 1, 1)
		dc.SetLineWidth(2)
		dc.Stroke()
		if opts.ShowOrdinals && p.Ordinal > 0 {
			dc.SetRGB(1, 1, 1)
			dc.DrawStringAnchored(strconv.Itoa(p.Ordinal), x, y, 0.5, 0.35)
		}
	}
	return dc.Image(), nil
}

// EncodeHeatmapPNG renders and writes the heatmap as PNG.
func EncodeHeatmapPNG(w io.Writer, points []ClickPoint, opts HeatmapOptions) error {
	img, err := RenderHeatmap(points, opts)
	if err != nil {
		return err
	}
	dc := gg.NewContextForImage(img)
	return dc.EncodePNG(w)
}
