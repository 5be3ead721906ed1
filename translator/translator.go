package translator

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
	"github.com/richinsley/glshaderanim/shader"
)

var (
	translator     *gst.ShaderTranslator
	translatorErr  error
	translatorOnce sync.Once
)

// GetTranslator returns the process-wide shader translator, creating it on first use.
func GetTranslator() (*gst.ShaderTranslator, error) {
	translatorOnce.Do(func() {
		translator, translatorErr = gst.NewShaderTranslator(context.Background())
	})
	return translator, translatorErr
}

// Translated is a fragment shader translated to desktop GLSL along with the names the
// translator assigned to its variables.
type Translated struct {
	Code        string
	MappedNames map[string]string
}

// MappedName returns the translated name of a variable, or "" when it was not reported.
func (t *Translated) MappedName(name string) string {
	return t.MappedNames[name]
}

// TranslateFragment translates a GLSL ES fragment shader to GLSL 4.10 and checks that the
// translator reports every required uniform.
func TranslateFragment(source string, required ...string) (*Translated, error) {
	tr, err := GetTranslator()
	if err != nil {
		return nil, fmt.Errorf("failed to create shader translator: %w", err)
	}
	fsShader, err := tr.TranslateShader(source, "fragment", gst.ShaderSpecWebGL2, gst.OutputFormatGLSL410)
	if err != nil {
		return nil, fmt.Errorf("fragment shader translation failed: %w", err)
	}

	out := &Translated{
		Code:        fsShader.Code,
		MappedNames: make(map[string]string, len(fsShader.Variables)),
	}
	for name, v := range fsShader.Variables {
		out.MappedNames[name] = v.MappedName
	}
	for _, name := range required {
		if _, ok := out.MappedNames[name]; !ok {
			return nil, fmt.Errorf("%w %q after translation", shader.ErrMissingUniform, name)
		}
	}
	return out, nil
}
