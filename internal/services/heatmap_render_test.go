package services

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestRenderHeatmapGradientCenters(t *testing.T) {
	points := []ClickPoint{
		{ParticipantID: "P1", Ordinal: 1, X: 10, Y: 10},
		{ParticipantID: "P2", Ordinal: 2, X: 90, Y: 90},
	}
	img, err := RenderHeatmap(points, HeatmapOptions{Width: 1000, Height: 1000})
	if err != nil {
		t.Fatalf("RenderHeatmap: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1000 || b.Dy() != 1000 {
		t.Fatalf("bounds = %v", b)
	}
	// Click centers carry the marker; far-away pixels stay the white background.
	assertRed := func(x, y int) {
		r, g, b, _ := img.At(x, y).RGBA()
		if r <= g || r <= b {
			t.Fatalf("pixel (%d,%d) = %d,%d,%d, want red-dominant", x, y, r, g, b)
		}
	}
	assertRed(100, 100)
	assertRed(900, 900)
	r, g, b, _ := img.At(500, 500).RGBA()
	if r != g || g != b || r == 0 {
		t.Fatalf("pixel (500,500) = %d,%d,%d, want untouched background", r, g, b)
	}
}

func TestRenderHeatmapRejectsBadCanvas(t *testing.T) {
	_, err := RenderHeatmap(nil, HeatmapOptions{Width: 0, Height: 100})
	if err == nil {
		t.Fatalf("zero-width canvas accepted")
	}
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorInvalid {
		t.Fatalf("error = %v, want invalid", err)
	}
}

func TestRenderHeatmapScalesBackground(t *testing.T) {
	bg := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img, err := RenderHeatmap(nil, HeatmapOptions{Width: 200, Height: 100, Background: bg})
	if err != nil {
		t.Fatalf("RenderHeatmap: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("background not scaled to canvas: %v", b)
	}
}

func TestEncodeHeatmapPNG(t *testing.T) {
	var buf bytes.Buffer
	points := []ClickPoint{{ParticipantID: "P1", Ordinal: 1, X: 50, Y: 50, TimeToClickMs: 900}}
	if err := EncodeHeatmapPNG(&buf, points, HeatmapOptions{Width: 300, Height: 300, ShowOrdinals: true}); err != nil {
		t.Fatalf("EncodeHeatmapPNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 300 {
		t.Fatalf("png bounds = %v", b)
	}
}
