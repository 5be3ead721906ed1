// Package testsrc generates the still test patterns the native GL backend samples in place
// of a live video source.
package testsrc

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sort"
)

// 75% SMPTE bars, top row.
var smpteTop = []color.RGBA{
	{191, 191, 191, 255}, // grey
	{191, 191, 0, 255},   // yellow
	{0, 191, 191, 255},   // cyan
	{0, 191, 0, 255},     // green
	{191, 0, 191, 255},   // magenta
	{191, 0, 0, 255},     // red
	{0, 0, 191, 255},     // blue
}

var smpteMiddle = []color.RGBA{
	{0, 0, 191, 255},
	{19, 19, 19, 255},
	{191, 0, 191, 255},
	{19, 19, 19, 255},
	{0, 191, 191, 255},
	{19, 19, 19, 255},
	{191, 191, 191, 255},
}

// -I, white, +Q, black
var smpteBottom = []color.RGBA{
	{0, 33, 76, 255},
	{255, 255, 255, 255},
	{50, 0, 106, 255},
	{19, 19, 19, 255},
}

var solidPatterns = map[string]color.RGBA{
	"black": {0, 0, 0, 255},
	"white": {255, 255, 255, 255},
	"red":   {255, 0, 0, 255},
	"green": {0, 255, 0, 255},
	"blue":  {0, 0, 255, 255},
}

// PatternNames lists the patterns Pattern can generate.
func PatternNames() []string {
	names := []string{"smpte", "checkers-8"}
	for name := range solidPatterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pattern renders a videotestsrc style pattern, top row first.
func Pattern(name string, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid pattern size %dx%d", width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	if c, ok := solidPatterns[name]; ok {
		draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
		return img, nil
	}
	switch name {
	case "smpte":
		top := height * 2 / 3
		middle := height * 3 / 4
		bars(img, smpteTop, 0, top)
		bars(img, smpteMiddle, top, middle)
		bars(img, smpteBottom, middle, height)
	case "checkers-8":
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if (x/8+y/8)%2 == 0 {
					img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
				} else {
					img.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
				}
			}
		}
	default:
		return nil, fmt.Errorf("unknown test pattern %q (want one of %v)", name, PatternNames())
	}
	return img, nil
}

// bars fills rows [y0, y1) with equal-width vertical bars.
func bars(img *image.RGBA, colors []color.RGBA, y0, y1 int) {
	width := img.Bounds().Dx()
	for i, c := range colors {
		x0 := i * width / len(colors)
		x1 := (i + 1) * width / len(colors)
		draw.Draw(img, image.Rect(x0, y0, x1, y1), &image.Uniform{C: c}, image.Point{}, draw.Src)
	}
}

// VFlip vertically flips the provided RGBA image so its first row ends up at the top of a
// GL texture.
func VFlip(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	flipped := image.NewRGBA(bounds)
	height := bounds.Dy()

	rowSize := bounds.Dx() * 4
	for y := 0; y < height; y++ {
		srcRow := src.Pix[((height-1)-y)*src.Stride:]
		dstRow := flipped.Pix[y*flipped.Stride:]
		copy(dstRow, srcRow[:rowSize])
	}
	return flipped
}
