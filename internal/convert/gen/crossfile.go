package gen

import (
	"path/filepath"
	"strings"

	"github.com/qobs-build/cubemeson/internal/makefile"
)

const (
	DefaultPrefix = "arm-none-eabi-"
	cpuFlagPrefix = "-mcpu="
	debugEnabled  = "1"
)

var (
	debugFlags = []string{"-g", "-gdwarf-2"}
	cxxFlags   = []string{"-fno-exceptions", "-fno-rtti"}
)

// toolRole is one cross binary: the Meson [binaries] key and the suffix
// appended to the toolchain prefix
type toolRole struct {
	key  string
	tool string
}

var toolRoles = []toolRole{
	{"c", "gcc"},
	{"cpp", "g++"},
	{"ar", "ar"},
	{"strip", "strip"},
	{"objcopy", "objcopy"},
	{"size", "size"},
}

// CrossFileGen renders a Meson cross file describing an arm-none-eabi
// bare-metal toolchain
type CrossFileGen struct {
	// ToolchainPath is the directory holding the toolchain binaries. When
	// empty, binaries are looked up on PATH at build time.
	ToolchainPath string
	// Prefix is used when the Makefile has no PREFIX.
	Prefix string
}

func NewCrossFileGen(toolchainPath string) *CrossFileGen {
	return &CrossFileGen{ToolchainPath: toolchainPath, Prefix: DefaultPrefix}
}

func (g *CrossFileGen) BuildFile() string { return "cross_file.txt" }

// ToolPrefix returns the toolchain prefix in effect for cfg
func (g *CrossFileGen) ToolPrefix(cfg *makefile.Config) string {
	return cfg.GetOr("PREFIX", g.Prefix)
}

// BinaryPath returns the path written for a tool such as "gcc"
func (g *CrossFileGen) BinaryPath(cfg *makefile.Config, tool string) string {
	name := g.ToolPrefix(cfg) + tool
	if g.ToolchainPath != "" {
		return filepath.Join(g.ToolchainPath, name)
	}
	return name
}

// CompileArgs returns the MCU flags, the optimization level and the debug
// info flags, in that order
func CompileArgs(cfg *makefile.Config) []string {
	args := strings.Fields(cfg.GetOr("MCU", ""))
	if opt := cfg.GetOr("OPT", ""); opt != "" {
		args = append(args, opt)
	}
	if cfg.GetOr("DEBUG", "") == debugEnabled {
		args = append(args, debugFlags...)
	}
	return args
}

// LinkArgs returns the MCU flags, the LDFLAGS-derived flags and the libraries
func LinkArgs(cfg *makefile.Config) []string {
	args := strings.Fields(cfg.GetOr("MCU", ""))
	if cfg.LdflagsSpecs != nil {
		args = append(args, *cfg.LdflagsSpecs)
	}
	if cfg.LdflagsGC != nil {
		args = append(args, *cfg.LdflagsGC)
	}
	return append(args, cfg.List("LIBS")...)
}

// CPU returns the bare CPU name, e.g. "cortex-m4" for "-mcpu=cortex-m4"
func CPU(cfg *makefile.Config) string {
	return strings.TrimPrefix(cfg.GetOr("CPU", ""), cpuFlagPrefix)
}

func (g *CrossFileGen) Generate(cfg *makefile.Config) string {
	var sb strings.Builder

	writeln(&sb, "[binaries]")
	for _, role := range toolRoles {
		writeln(&sb, role.key, strings.Repeat(" ", 8-len(role.key)), "= ", quote(g.BinaryPath(cfg, role.tool)))
	}
	writeln(&sb)

	writeln(&sb, "[host_machine]")
	writeln(&sb, "system      = 'none'")
	writeln(&sb, "cpu_family  = 'arm'")
	writeln(&sb, "cpu         = ", quote(CPU(cfg)))
	writeln(&sb, "endian      = 'little'")
	writeln(&sb)

	writeln(&sb, "[built-in options]")
	writeln(&sb, "# C compiler flags: architecture flags and optimization.")
	writeln(&sb, "# Preprocessor definitions (-D) are managed in meson.build")
	writeln(&sb, "c_args = [", quoteList(CompileArgs(cfg), ",\n                "), "]")
	writeln(&sb)
	writeln(&sb, "# Flags for the C++ compiler. Adjust as needed.")
	writeln(&sb, "cpp_args = c_args + [", quoteList(cxxFlags, ", "), "]")
	writeln(&sb)
	writeln(&sb, "# Linker flags. The linker script is passed separately in meson.build.")
	writeln(&sb, "c_link_args = [", quoteList(LinkArgs(cfg), ",\n                 "), "]")
	writeln(&sb, "cpp_link_args = c_link_args")

	return sb.String()
}
