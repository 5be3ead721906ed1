package shader

import (
	"fmt"
	"strings"

	css "github.com/mazznoer/csscolorparser"
	"golang.org/x/exp/constraints"
)

// VideoColor is the color keyword that shows the upstream frame instead of a flat color.
const VideoColor = "video"

// Color is one branch of the ball shader: a flat RGBA color, or the upstream video frame.
type Color struct {
	R, G, B, A float64
	Video      bool
}

// ParseColor accepts any CSS color ("#fff", "rgb(51,51,51)", "white") or "video".
func ParseColor(str string) (Color, error) {
	if strings.EqualFold(strings.TrimSpace(str), VideoColor) {
		return Color{Video: true}, nil
	}
	c, err := css.Parse(str)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", str, err)
	}
	return Color{
		R: Clamp(c.R, 0, 1),
		G: Clamp(c.G, 0, 1),
		B: Clamp(c.B, 0, 1),
		A: Clamp(c.A, 0, 1),
	}, nil
}

func (c Color) String() string {
	if c.Video {
		return VideoColor
	}
	return fmt.Sprintf("rgba(%.0f,%.0f,%.0f,%s)", c.R*255, c.G*255, c.B*255, glslFloat(c.A))
}

func (c Color) glsl() string {
	if c.Video {
		return fmt.Sprintf("texture2D(%s, %s)", UniformTex, TexCoordVarying)
	}
	return fmt.Sprintf("vec4(%s, %s, %s, %s)", glslFloat(c.R), glslFloat(c.G), glslFloat(c.B), glslFloat(c.A))
}

func Clamp[N constraints.Integer | constraints.Float](n, minN, maxN N) N {
	n = min(n, maxN)
	n = max(n, minN)

	return n
}
