//go:build cgo

package gstpipeline

/*
#cgo pkg-config: gstreamer-1.0 gstreamer-gl-1.0
#include <stdlib.h>
#include <gst/gst.h>
#include <gst/gl/gl.h>

// glshader creates its GstGLShader on the GL thread when the first buffer arrives and
// drops it when the GL context goes away.
static gboolean glanim_has_shader(GstElement *elem) {
	GstGLShader *shader = NULL;
	g_object_get(elem, "shader", &shader, NULL);
	if (shader == NULL) {
		return FALSE;
	}
	gst_object_unref(shader);
	return TRUE;
}

static GstStructure *glanim_uniforms_new(void) {
	return gst_structure_new_empty("uniforms");
}

static void glanim_uniforms_set(GstStructure *s, const char *name, float value) {
	gst_structure_set(s, name, G_TYPE_FLOAT, value, NULL);
}

// glshader copies the structure and applies it on the GL thread before the next frame.
static void glanim_uniforms_apply(GstElement *elem, GstStructure *s) {
	g_object_set(elem, "uniforms", s, NULL);
	gst_structure_free(s);
}
*/
import "C"

import (
	"unsafe"

	"github.com/go-gst/go-gst/gst"
)

func hasLiveShader(elem *gst.Element) bool {
	return C.glanim_has_shader((*C.GstElement)(elem.Unsafe())) != C.FALSE
}

func applyUniforms(elem *gst.Element, values map[string]float32) {
	s := C.glanim_uniforms_new()
	for name, v := range values {
		cname := C.CString(name)
		C.glanim_uniforms_set(s, cname, C.float(v))
		C.free(unsafe.Pointer(cname))
	}
	C.glanim_uniforms_apply((*C.GstElement)(elem.Unsafe()), s)
}
