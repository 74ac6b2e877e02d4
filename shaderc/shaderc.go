// Package shaderc compiles GLSL to SPIR-V with libshaderc.
package shaderc

/*
#cgo pkg-config: shaderc
#include <shaderc/shaderc.h>
#include <stdlib.h>
*/
import "C"
import (
	"errors"
	"fmt"
	"unsafe"
)

type Compiler struct {
	handle C.shaderc_compiler_t
}

type CompileOptions struct {
	handle C.shaderc_compile_options_t
}

type ShaderKind int

const (
	VertexShader   ShaderKind = C.shaderc_vertex_shader
	FragmentShader ShaderKind = C.shaderc_fragment_shader
	ComputeShader  ShaderKind = C.shaderc_compute_shader
)

func (k ShaderKind) String() string {
	switch k {
	case VertexShader:
		return "vertex"
	case FragmentShader:
		return "fragment"
	case ComputeShader:
		return "compute"
	}
	return fmt.Sprintf("ShaderKind(%d)", int(k))
}

type CompilationResult struct {
	handle C.shaderc_compilation_result_t
}

var errNoCompiler = errors.New("shaderc: compiler initialisation failed")

func NewCompiler() Compiler {
	return Compiler{handle: C.shaderc_compiler_initialize()}
}

func (c Compiler) Release() {
	C.shaderc_compiler_release(c.handle)
}

func NewCompileOptions() CompileOptions {
	return CompileOptions{handle: C.shaderc_compile_options_initialize()}
}

func (o CompileOptions) Release() {
	C.shaderc_compile_options_release(o.handle)
}

func (o CompileOptions) SetTargetEnv(env int, version uint32) {
	C.shaderc_compile_options_set_target_env(
		o.handle,
		C.shaderc_target_env(env),
		C.uint32_t(version),
	)
}

func (o CompileOptions) SetOptimizationLevel(level int) {
	C.shaderc_compile_options_set_optimization_level(
		o.handle,
		C.shaderc_optimization_level(level),
	)
}

const (
	TargetEnvVulkan              = C.shaderc_target_env_vulkan
	EnvVersionVulkan_1_3         = C.shaderc_env_version_vulkan_1_3
	OptimizationLevelPerformance = C.shaderc_optimization_level_performance
)

// CompileIntoSPV compiles source with entry point main. The result must be
// released by the caller.
func (c Compiler) CompileIntoSPV(source, filename string, kind ShaderKind, options CompileOptions) (CompilationResult, error) {
	cSource := C.CString(source)
	cFilename := C.CString(filename)
	cEntry := C.CString("main")
	defer C.free(unsafe.Pointer(cSource))
	defer C.free(unsafe.Pointer(cFilename))
	defer C.free(unsafe.Pointer(cEntry))

	result := C.shaderc_compile_into_spv(
		c.handle,
		cSource,
		C.size_t(len(source)),
		C.shaderc_shader_kind(kind),
		cFilename,
		cEntry,
		options.handle,
	)
	if result == nil {
		return CompilationResult{}, fmt.Errorf("shaderc: %s: out of memory", filename)
	}

	status := C.shaderc_result_get_compilation_status(result)
	if status != C.shaderc_compilation_status_success {
		msg := C.GoString(C.shaderc_result_get_error_message(result))
		C.shaderc_result_release(result)
		return CompilationResult{}, fmt.Errorf("shaderc: %s shader %s: %s", kind, filename, msg)
	}

	return CompilationResult{handle: result}, nil
}

func (r CompilationResult) GetBytes() []byte {
	ptr := C.shaderc_result_get_bytes(r.handle)
	length := C.shaderc_result_get_length(r.handle)
	return C.GoBytes(unsafe.Pointer(ptr), C.int(length))
}

func (r CompilationResult) Release() {
	C.shaderc_result_release(r.handle)
}

// Compile compiles one GLSL source for Vulkan 1.3 and returns its SPIR-V.
func Compile(source, filename string, kind ShaderKind) ([]byte, error) {
	compiler := NewCompiler()
	if compiler.handle == nil {
		return nil, errNoCompiler
	}
	defer compiler.Release()

	options := NewCompileOptions()
	defer options.Release()
	options.SetTargetEnv(TargetEnvVulkan, EnvVersionVulkan_1_3)
	options.SetOptimizationLevel(OptimizationLevelPerformance)

	result, err := compiler.CompileIntoSPV(source, filename, kind, options)
	if err != nil {
		return nil, err
	}
	defer result.Release()
	return result.GetBytes(), nil
}
