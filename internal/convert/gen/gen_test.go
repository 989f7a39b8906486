package gen

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/qobs-build/cubemeson/internal/makefile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const crossMakefile = `PREFIX = arm-none-eabi-
CPU = -mcpu=cortex-m4
MCU = -mcpu=cortex-m4 -mthumb
OPT = -Og
DEBUG = 1
LIBS = -lc -lm
LDFLAGS = -specs=nano.specs -Wl,--gc-sections
`

const expectedCrossFile = `[binaries]
c       = 'arm-none-eabi-gcc'
cpp     = 'arm-none-eabi-g++'
ar      = 'arm-none-eabi-ar'
strip   = 'arm-none-eabi-strip'
objcopy = 'arm-none-eabi-objcopy'
size    = 'arm-none-eabi-size'

[host_machine]
system      = 'none'
cpu_family  = 'arm'
cpu         = 'cortex-m4'
endian      = 'little'

[built-in options]
# C compiler flags: architecture flags and optimization.
# Preprocessor definitions (-D) are managed in meson.build
c_args = ['-mcpu=cortex-m4',
                '-mthumb',
                '-Og',
                '-g',
                '-gdwarf-2']

# Flags for the C++ compiler. Adjust as needed.
cpp_args = c_args + ['-fno-exceptions', '-fno-rtti']

# Linker flags. The linker script is passed separately in meson.build.
c_link_args = ['-mcpu=cortex-m4',
                 '-mthumb',
                 '-specs=nano.specs',
                 '-Wl,--gc-sections',
                 '-lc',
                 '-lm']
cpp_link_args = c_link_args
`

const buildMakefile = `TARGET = blink
C_SOURCES =  \
Core/Src/main.c \
Core/Src/gpio.c

ASM_SOURCES =  \
startup_stm32f407xx.s

C_DEFS =  \
-DUSE_HAL_DRIVER \
-DSTM32F407xx

C_INCLUDES =  \
-ICore/Inc \
-IDrivers/CMSIS/Include

LDSCRIPT = STM32F407VGTx_FLASH.ld
`

func TestCrossFileGenerate(t *testing.T) {
	cfg := makefile.Parse(crossMakefile)
	g := NewCrossFileGen("")

	assert.Equal(t, "cross_file.txt", g.BuildFile())
	assert.Equal(t, expectedCrossFile, g.Generate(cfg))
}

func TestCrossFileToolchainPath(t *testing.T) {
	cfg := makefile.Parse(crossMakefile)
	dir := filepath.Join("opt", "gcc-arm", "bin")
	out := NewCrossFileGen(dir).Generate(cfg)

	for _, tool := range []string{"gcc", "g++", "ar", "strip", "objcopy", "size"} {
		assert.Contains(t, out, "= "+quote(filepath.Join(dir, "arm-none-eabi-"+tool))+"\n")
	}
}

func TestCrossFileBarePaths(t *testing.T) {
	cfg := makefile.Parse("PREFIX = arm-none-eabi-\n")
	g := NewCrossFileGen("")

	for _, tool := range []string{"gcc", "g++", "ar", "strip", "objcopy", "size"} {
		assert.Equal(t, "arm-none-eabi-"+tool, g.BinaryPath(cfg, tool))
	}
}

func TestCrossFileDefaultPrefix(t *testing.T) {
	cfg := makefile.Parse("TARGET = x\n")
	g := NewCrossFileGen("")

	assert.Equal(t, DefaultPrefix, g.ToolPrefix(cfg))
	assert.Contains(t, g.Generate(cfg), "c       = 'arm-none-eabi-gcc'\n")

	g.Prefix = "riscv-none-elf-"
	assert.Equal(t, "riscv-none-elf-gcc", g.BinaryPath(cfg, "gcc"))

	cfg = makefile.Parse("PREFIX = custom-\n")
	assert.Equal(t, "custom-gcc", g.BinaryPath(cfg, "gcc"))
}

func TestCompileArgs(t *testing.T) {
	cfg := makefile.Parse("MCU = -mcpu=cortex-m0 -mthumb\nDEBUG = 0\n")
	assert.Equal(t, []string{"-mcpu=cortex-m0", "-mthumb"}, CompileArgs(cfg))

	cfg = makefile.Parse("MCU = -mthumb\nOPT =\nDEBUG = 1\n")
	assert.Equal(t, []string{"-mthumb", "-g", "-gdwarf-2"}, CompileArgs(cfg))

	out := NewCrossFileGen("").Generate(makefile.Parse(""))
	assert.Contains(t, out, "c_args = []\n")
	assert.Contains(t, out, "c_link_args = []\n")
	assert.Contains(t, out, "cpu         = ''\n")
}

func TestLinkArgsWithoutLdflags(t *testing.T) {
	cfg := makefile.Parse("MCU = -mcpu=cortex-m3 -mthumb\nLIBS = -lc -lnosys\n")
	assert.Equal(t, []string{"-mcpu=cortex-m3", "-mthumb", "-lc", "-lnosys"}, LinkArgs(cfg))
}

func TestCPU(t *testing.T) {
	assert.Equal(t, "cortex-m7", CPU(makefile.Parse("CPU = -mcpu=cortex-m7\n")))
	assert.Equal(t, "cortex-m7", CPU(makefile.Parse("CPU = cortex-m7\n")))
	assert.Equal(t, "", CPU(makefile.Parse("")))
}

func TestMesonBuildProjectName(t *testing.T) {
	g := NewMesonBuildGen()
	assert.Equal(t, "meson.build", g.BuildFile())

	out := g.Generate(makefile.Parse(buildMakefile))
	assert.True(t, strings.HasPrefix(out, "project('blink', ['c'],\n"))

	out = g.Generate(makefile.Parse(""))
	assert.True(t, strings.HasPrefix(out, "project('firmware', ['c'],\n"))

	g.Name = "app"
	out = g.Generate(makefile.Parse(""))
	assert.True(t, strings.HasPrefix(out, "project('app', ['c'],\n"))
}

func TestMesonBuildWithoutCpp(t *testing.T) {
	out := NewMesonBuildGen().Generate(makefile.Parse(buildMakefile))

	assert.Contains(t, out, "sources = files(\n  'Core/Src/main.c',\n  'Core/Src/gpio.c'\n)\n")
	assert.Contains(t, out, "asm_sources = files(\n  'startup_stm32f407xx.s'\n)\n")
	assert.NotContains(t, out, "cpp_sources")
	assert.NotContains(t, out, "'cpp'")
	assert.Contains(t, out, "add_project_arguments(project_defs, language: ['c'])\n")
	assert.Contains(t, out, "  meson.project_name() + '.elf',\n  sources, asm_sources,\n")
}

func TestMesonBuildWithCpp(t *testing.T) {
	cfg := makefile.Parse(buildMakefile + "\nCPP_SOURCES = \\\nCore/Src/app.cpp \\\nCore/Src/driver.cc\n")
	out := NewMesonBuildGen().Generate(cfg)

	assert.True(t, strings.HasPrefix(out, "project('blink', ['c', 'cpp'],\n"))
	assert.Contains(t, out, ")\n\ncpp_sources = files(\n  'Core/Src/app.cpp',\n  'Core/Src/driver.cc'\n)\n\ninc_dirs")
	assert.Contains(t, out, "add_project_arguments(project_defs, language: ['c', 'cpp'])\n")
	assert.Contains(t, out, "  sources, asm_sources, cpp_sources,\n")
}

func TestMesonBuildIncludesAndDefines(t *testing.T) {
	out := NewMesonBuildGen().Generate(makefile.Parse(buildMakefile))

	assert.Equal(t, []string{"Core/Inc", "Drivers/CMSIS/Include"}, IncludeDirs(makefile.Parse(buildMakefile)))
	assert.Contains(t, out, "inc_dirs = include_directories(\n  'Core/Inc',\n  'Drivers/CMSIS/Include'\n)\n")
	assert.Contains(t, out, "project_defs = [\n  '-DUSE_HAL_DRIVER',\n  '-DSTM32F407xx'\n]\n")
}

func TestMesonBuildLinkerScript(t *testing.T) {
	out := NewMesonBuildGen().Generate(makefile.Parse(buildMakefile))
	assert.Contains(t, out, "linker_script_file = 'STM32F407VGTx_FLASH.ld'\n")
	assert.Contains(t, out, "project_link_args = ['-T', join_paths(meson.project_source_root(), linker_script_file)]\n")
	assert.Contains(t, out, "  link_depends: linker_script_dep\n")

	out = NewMesonBuildGen().Generate(makefile.Parse(""))
	assert.Contains(t, out, "linker_script_file = ''\n")
}

func TestMesonBuildPostBuildSteps(t *testing.T) {
	out := NewMesonBuildGen().Generate(makefile.Parse(buildMakefile))

	assert.Contains(t, out, "    command: [objcopy, '-O', 'binary', '@INPUT@', '@OUTPUT@'],\n")
	assert.Contains(t, out, "    command: [objcopy, '-O', 'ihex', '@INPUT@', '@OUTPUT@'],\n")
	assert.Equal(t, 2, strings.Count(out, "    build_by_default: true\n"))
	assert.Contains(t, out, "  command: [size_tool, '--format=berkeley', elf_file]\n")
	assert.Contains(t, out, "openocd = find_program('openocd', required: false)\nif openocd.found()\n")
	assert.Contains(t, out, "      '-f', 'interface/stlink.cfg',\n      '-f', 'target/stm32f4x.cfg',\n")
	assert.Contains(t, out, "      '-c', 'program @INPUT@ verify reset exit'\n")
	assert.True(t, strings.HasSuffix(out, "    depends: elf_file\n  )\nendif\n"))
}

func TestMesonBuildFlashConfig(t *testing.T) {
	g := NewMesonBuildGen()
	g.FlashInterface = "interface/cmsis-dap.cfg"
	g.FlashTarget = "target/stm32h7x.cfg"
	out := g.Generate(makefile.Parse(buildMakefile))

	assert.Contains(t, out, "'-f', 'interface/cmsis-dap.cfg',")
	assert.Contains(t, out, "'-f', 'target/stm32h7x.cfg',")
}

func TestMesonBuildDefaultOptions(t *testing.T) {
	g := NewMesonBuildGen()
	out := g.Generate(makefile.Parse(""))
	assert.Contains(t, out, "  default_options: [\n    'b_lto=false',       # LTO can get in the way of debugging\n")
	assert.Contains(t, out, "    'b_staticpic=false'  # required for bare-metal\n  ]\n)\n")

	g.DefaultOptions = []string{"warning_level=2"}
	out = g.Generate(makefile.Parse(""))
	assert.Contains(t, out, "  default_options: [\n    'warning_level=2'\n  ]\n")
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, quote("plain"))
	assert.Equal(t, `'it\'s'`, quote("it's"))
	assert.Equal(t, `'C:\\tools\\bin'`, quote(`C:\tools\bin`))
	assert.Equal(t, "'a', 'b'", quoteList([]string{"a", "", "b"}, ", "))
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := makefile.Parse(buildMakefile + crossMakefile)
	for _, g := range []Generator{NewCrossFileGen("/opt/bin"), NewMesonBuildGen()} {
		require.Equal(t, g.Generate(cfg), g.Generate(cfg), g.BuildFile())
	}
}
