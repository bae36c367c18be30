//go:build !nogpu

package gpu

import _ "embed"

//go:embed shaders/quad.wgsl
var quadShaderSource string

//go:embed shaders/mesh.wgsl
var meshShaderSource string

//go:embed shaders/text.wgsl
var textShaderSource string

//go:embed shaders/image.wgsl
var imageShaderSource string

//go:embed shaders/blur.wgsl
var blurShaderSource string

//go:embed shaders/gradient_fade.wgsl
var fadeShaderSource string
