package shader

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBallFragmentShaderDeclaresUniforms(t *testing.T) {
	src := BallFragmentShader(DefaultBallParams())

	assert.True(t, strings.HasPrefix(src, "#version 100\n"))
	assert.Contains(t, src, "float r = 0.1;")
	assert.Contains(t, src, "color = vec4(1.0, 1.0, 1.0, 1.0);")
	assert.Contains(t, src, "color = vec4(0.2, 0.2, 0.2, 1.0);")

	decls := DeclaredUniforms(src)
	assert.Equal(t, map[string]string{
		UniformTex:    "sampler2D",
		UniformTime:   "float",
		UniformWidth:  "float",
		UniformHeight: "float",
		UniformCX:     "float",
		UniformCY:     "float",
	}, decls)

	require.NoError(t, RequireUniforms(src, "float", UniformCX, UniformCY))
}

func TestBallFragmentShaderVideoBranch(t *testing.T) {
	p := DefaultBallParams()
	p.Outside = Color{Video: true}
	src := BallFragmentShader(p)
	assert.Contains(t, src, "color = texture2D(tex, v_texcoord);")
}

func TestRequireUniformsConfigurationErrors(t *testing.T) {
	src := `#version 100
precision mediump float;
uniform float cx;
uniform highp int cy;
void main() { gl_FragColor = vec4(cx); }
`
	err := RequireUniforms(src, "float", UniformCX, UniformCY, "cz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUniformType))
	assert.True(t, errors.Is(err, ErrMissingUniform))
	assert.Contains(t, err.Error(), `"cy" is int, want float`)
	assert.Contains(t, err.Error(), `"cz"`)
}

func TestGenerateVertexShader(t *testing.T) {
	vs := GenerateVertexShader("_uv_texcoord")
	assert.Contains(t, vs, "out vec2 _uv_texcoord;")
	assert.Contains(t, vs, "_uv_texcoord = in_vert * 0.5 + 0.5;")
	assert.Contains(t, GenerateVertexShader(""), "out vec2 frag_uv;")
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#333333")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, c.R, 1e-9)
	assert.InDelta(t, 1.0, c.A, 1e-9)
	assert.Equal(t, "vec4(0.2, 0.2, 0.2, 1.0)", c.glsl())

	c, err = ParseColor("white")
	require.NoError(t, err)
	assert.Equal(t, "rgba(255,255,255,1.0)", c.String())

	c, err = ParseColor(" Video ")
	require.NoError(t, err)
	assert.True(t, c.Video)
	assert.Equal(t, VideoColor, c.String())

	_, err = ParseColor("not-a-color")
	assert.Error(t, err)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(1.5, 0.0, 1.0))
	assert.Equal(t, 0.0, Clamp(-0.5, 0.0, 1.0))
	assert.Equal(t, 3, Clamp(3, 0, 10))
}

func TestUniformSet(t *testing.T) {
	s := NewUniformSet(UniformCX, UniformCY)

	require.NoError(t, s.Set(UniformCX, 0.25))
	require.NoError(t, s.Set(UniformCY, 1.75)) // off-screen but valid
	assert.ErrorIs(t, s.Set(UniformWidth, 800), ErrUnknownUniform)
	assert.ErrorIs(t, s.Set(UniformCX, float32(math.NaN())), ErrNonFinite)
	assert.ErrorIs(t, s.Set(UniformCY, float32(math.Inf(1))), ErrNonFinite)

	s.Define(UniformWidth, 800)

	v, ok := s.Get(UniformCX)
	require.True(t, ok)
	assert.Equal(t, float32(0.25), v)
	_, ok = s.Get(UniformTime)
	assert.False(t, ok)

	assert.Equal(t, []string{UniformCX, UniformCY, UniformWidth}, s.Names())
	snap := s.Snapshot()
	snap[UniformCX] = 9
	v, _ = s.Get(UniformCX)
	assert.Equal(t, float32(0.25), v)
}

func TestUniformSetAsHandle(t *testing.T) {
	s := NewUniformSet(UniformCX, UniformCY)
	s.DefineAll(InitialUniforms())
	v, _ := s.Get(UniformCY)
	assert.Equal(t, float32(InitialPosition), v)

	require.NoError(t, s.SetUniform1f(UniformCY, 0.75))
	v, _ = s.Get(UniformCY)
	assert.Equal(t, float32(0.75), v)
	assert.ErrorIs(t, s.SetUniform1f(UniformTex, 0), ErrUnknownUniform)
}

func TestUniformSetDefineAllIsAtomic(t *testing.T) {
	s := NewUniformSet()
	s.DefineAll(map[string]float32{UniformCX: 0, UniformCY: 0})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 1000; i++ {
			s.DefineAll(map[string]float32{UniformCX: float32(i), UniformCY: float32(i)})
		}
	}()
	for {
		snap := s.Snapshot()
		require.Equal(t, snap[UniformCX], snap[UniformCY], "snapshot mixes two commits")
		select {
		case <-done:
			return
		default:
		}
	}
}
