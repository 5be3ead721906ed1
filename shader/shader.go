package shader

import (
	"fmt"
	"strings"
)

// Uniform names shared by the ball shader, the animator and the backends.
const (
	UniformTex    = "tex"
	UniformTime   = "time"
	UniformWidth  = "width"
	UniformHeight = "height"
	UniformCX     = "cx"
	UniformCY     = "cy"
)

// TexCoordVarying is the varying the fragment shader reads texture coordinates from.
const TexCoordVarying = "v_texcoord"

// ────────────────────────────────── Ball shader ──────────────────────────────────

// GLSL ES 1.00, the dialect GStreamer's glshader element compiles.
const ballFragmentTemplate = `#version 100
#ifdef GL_ES
precision mediump float;
#endif
varying vec2 v_texcoord;
uniform sampler2D tex;  // upstream frame, [0,1]x[0,1]
uniform float time;
uniform float width;    // output width in pixels
uniform float height;   // output height in pixels
uniform float cx;
uniform float cy;

void main() {
    vec2 c = vec2(cx, cy);
    float r = %s;
    vec2 p = vec2(gl_FragCoord.x / width, gl_FragCoord.y / height);

    vec4 color;
    if (length(p - c) < r) {
        color = %s;
    } else {
        color = %s;
    }
    gl_FragColor = color;
}
`

// BallParams are the color-branch values and radius of the ball shader.
type BallParams struct {
	// Radius in normalized fragment space.
	Radius  float64
	Inside  Color
	Outside Color
}

// DefaultBallParams reproduces the white ball on a dark grey background.
func DefaultBallParams() BallParams {
	return BallParams{
		Radius:  0.1,
		Inside:  Color{R: 1, G: 1, B: 1, A: 1},
		Outside: Color{R: 0.2, G: 0.2, B: 0.2, A: 1},
	}
}

// BallFragmentShader renders the ball fragment shader for the given parameters.
func BallFragmentShader(p BallParams) string {
	return fmt.Sprintf(ballFragmentTemplate, glslFloat(p.Radius), p.Inside.glsl(), p.Outside.glsl())
}

// ────────────────────────────────── Desktop GL ──────────────────────────────────

const vertexShaderTemplateGL = `#version 410 core
layout (location = 0) in vec2 in_vert;
out vec2 %s;
void main() {
    %s = in_vert * 0.5 + 0.5;
    gl_Position = vec4(in_vert, 0.0, 1.0);
}
`

// GenerateVertexShader returns a full-screen-quad vertex shader writing texture
// coordinates to the named output. The translator renames user varyings, so the name is
// whatever the translated fragment shader expects.
func GenerateVertexShader(texCoordName string) string {
	if texCoordName == "" {
		texCoordName = "frag_uv"
	}
	return fmt.Sprintf(vertexShaderTemplateGL, texCoordName, texCoordName)
}

func glslFloat(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}
