package testsrc

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMPTEBars(t *testing.T) {
	img, err := Pattern("smpte", 70, 120)
	require.NoError(t, err)
	assert.Equal(t, 70, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())

	// one sample in the middle of each top bar
	for i, want := range smpteTop {
		assert.Equal(t, want, img.RGBAAt(i*10+5, 10), "bar %d", i)
	}
	assert.Equal(t, smpteMiddle[1], img.RGBAAt(15, 85))
	assert.Equal(t, smpteBottom[1], img.RGBAAt(25, 110))
}

func TestSolidAndCheckers(t *testing.T) {
	img, err := Pattern("red", 4, 4)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(3, 3))

	img, err = Pattern("checkers-8", 16, 16)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(8, 0))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(8, 8))
}

func TestPatternErrors(t *testing.T) {
	_, err := Pattern("plasma", 4, 4)
	assert.Error(t, err)
	_, err = Pattern("smpte", 0, 4)
	assert.Error(t, err)
	assert.Contains(t, PatternNames(), "smpte")
}

func TestVFlip(t *testing.T) {
	img, err := Pattern("smpte", 7, 12)
	require.NoError(t, err)
	flipped := VFlip(img)
	assert.Equal(t, img.RGBAAt(0, 0), flipped.RGBAAt(0, 11))
	assert.Equal(t, img.RGBAAt(6, 11), flipped.RGBAAt(6, 0))
}
