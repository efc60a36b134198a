package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/hassaan-janjua/led-localization/glrender"
	"github.com/hassaan-janjua/led-localization/texpreview"
)

const vertexShaderSource = `#version 410 core
layout (location = 0) in vec2 pos;
layout (location = 1) in vec2 uv;
out vec2 texCoord;
void main() {
	texCoord = uv;
	gl_Position = vec4(pos, 0.0, 1.0);
}
` + "\x00"

// The fragment shader tints pixels at or above the luminance threshold so
// LED candidates stand out in the preview.
const fragmentShaderSource = `#version 410 core
in vec2 texCoord;
out vec4 fragColor;
uniform sampler2D frameTex;
uniform float lumThreshold;
void main() {
	vec4 c = texture(frameTex, texCoord);
	float lum = dot(c.rgb, vec3(0.299, 0.587, 0.114));
	if (lum >= lumThreshold) {
		fragColor = mix(c, vec4(1.0, 0.0, 0.0, 1.0), 0.6);
	} else {
		fragColor = c;
	}
}
` + "\x00"

// Fullscreen quad as a triangle strip, interleaved position and texture
// coordinates. V is flipped because frame rows arrive top-down.
var quadVertices = []float32{
	-1.0, -1.0, 0.0, 1.0,
	1.0, -1.0, 1.0, 1.0,
	-1.0, 1.0, 0.0, 0.0,
	1.0, 1.0, 1.0, 0.0,
}

// localizerScene draws each captured frame as a fullscreen textured quad,
// highlighting bright pixels that may be LEDs.
type localizerScene struct {
	log *slog.Logger

	program uint32
	vao     uint32
	vbo     uint32

	texLoc       int32
	thresholdLoc int32
}

func newLocalizerScene(logger *slog.Logger) *localizerScene {
	if logger == nil {
		logger = slog.Default()
	}
	return &localizerScene{log: logger}
}

// Open runs before any window or GL context exists, so it only records the
// configured tunables.
func (s *localizerScene) Open(state *texpreview.RenderState) error {
	s.log.Info("scene: configured",
		"luminance_threshold", state.LuminanceThreshold,
		"resolution", fmt.Sprintf("%dx%d", state.Width, state.Height))
	return nil
}

// Init compiles the shader program and uploads the quad geometry. It runs on
// the render thread with the GL context current.
func (s *localizerScene) Init(state *texpreview.RenderState) error {
	program, err := buildProgram(vertexShaderSource, fragmentShaderSource)
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	s.program = program
	s.texLoc = gl.GetUniformLocation(program, gl.Str("frameTex\x00"))
	s.thresholdLoc = gl.GetUniformLocation(program, gl.Str("lumThreshold\x00"))

	gl.GenVertexArrays(1, &s.vao)
	gl.BindVertexArray(s.vao)
	gl.GenBuffers(1, &s.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, s.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 4*4, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, 4*4, 2*4)

	if glErr := gl.GetError(); glErr != gl.NO_ERROR {
		return fmt.Errorf("scene: geometry setup failed: GL error 0x%04x", glErr)
	}

	s.log.Debug("scene: GL resources ready", "program", s.program, "vao", s.vao)
	return nil
}

// Draw renders the current frame texture over the whole window.
func (s *localizerScene) Draw(state *texpreview.RenderState) error {
	tex, ok := state.Image.(*glrender.Texture)
	if !ok {
		return fmt.Errorf("scene: unexpected image type %T", state.Image)
	}

	gl.ClearColor(0.0, 0.0, 0.0, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.UseProgram(s.program)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex.ID)
	gl.Uniform1i(s.texLoc, 0)
	gl.Uniform1f(s.thresholdLoc, float32(state.LuminanceThreshold)/255.0)

	gl.BindVertexArray(s.vao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)

	if glErr := gl.GetError(); glErr != gl.NO_ERROR {
		return fmt.Errorf("scene: draw failed: GL error 0x%04x", glErr)
	}
	return nil
}

// buildProgram compiles and links the vertex and fragment shaders.
func buildProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertex, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragment, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertex)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertex)
	gl.AttachShader(program, fragment)
	gl.LinkProgram(program)
	gl.DeleteShader(vertex)
	gl.DeleteShader(fragment)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(infoLog))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link shader program: %s", strings.TrimRight(infoLog, "\x00"))
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(infoLog))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile shader: %s", strings.TrimRight(infoLog, "\x00"))
	}
	return shader, nil
}
