package gen

import (
	"strings"

	"github.com/qobs-build/cubemeson/internal/makefile"
)

const (
	DefaultProjectName    = "firmware"
	DefaultFlashInterface = "interface/stlink.cfg"
	DefaultFlashTarget    = "target/stm32f4x.cfg"
	includeFlagPrefix     = "-I"
	listSep               = ",\n  "
)

var DefaultProjectOptions = []string{"b_lto=false", "b_map=true", "b_staticpic=false"}

// trailing comments for the well-known default options
var projectOptionComments = map[string]string{
	"b_lto=false":       "# LTO can get in the way of debugging",
	"b_map=true":        "# always produce a .map file",
	"b_staticpic=false": "# required for bare-metal",
}

// MesonBuildGen renders the meson.build of the firmware project
type MesonBuildGen struct {
	// Name is the project name used when the Makefile has no TARGET.
	Name           string
	DefaultOptions []string
	// FlashInterface and FlashTarget are the OpenOCD config files passed
	// to the flash run target.
	FlashInterface string
	FlashTarget    string
}

func NewMesonBuildGen() *MesonBuildGen {
	return &MesonBuildGen{
		Name:           DefaultProjectName,
		DefaultOptions: DefaultProjectOptions,
		FlashInterface: DefaultFlashInterface,
		FlashTarget:    DefaultFlashTarget,
	}
}

func (g *MesonBuildGen) BuildFile() string { return "meson.build" }

// ProjectName returns TARGET or the fallback name
func (g *MesonBuildGen) ProjectName(cfg *makefile.Config) string {
	return cfg.GetOr("TARGET", g.Name)
}

// Languages returns "c", plus "cpp" if there are any C++ sources
func Languages(cfg *makefile.Config) []string {
	langs := []string{"c"}
	if len(cfg.List("CPP_SOURCES")) > 0 {
		langs = append(langs, "cpp")
	}
	return langs
}

// IncludeDirs returns C_INCLUDES with the -I prefix removed
func IncludeDirs(cfg *makefile.Config) []string {
	includes := cfg.List("C_INCLUDES")
	for i, inc := range includes {
		includes[i] = strings.TrimPrefix(inc, includeFlagPrefix)
	}
	return includes
}

// writeFiles writes a `name = files(...)` block, keeping the Makefile order
func writeFiles(sb *strings.Builder, name string, files []string) {
	writeln(sb, name, " = files(")
	writeln(sb, "  ", quoteList(files, listSep))
	writeln(sb, ")")
}

func (g *MesonBuildGen) writeProject(sb *strings.Builder, name, languages string) {
	writeln(sb, "project(", quote(name), ", [", languages, "],")
	writeln(sb, "  default_options: [")
	width := 0
	for _, opt := range g.DefaultOptions {
		width = max(width, len(quote(opt))+1)
	}
	for i, opt := range g.DefaultOptions {
		item := quote(opt)
		if i < len(g.DefaultOptions)-1 {
			item += ","
		}
		if comment, ok := projectOptionComments[opt]; ok {
			item += strings.Repeat(" ", width-len(item)+1) + comment
		}
		writeln(sb, "    ", item)
	}
	writeln(sb, "  ]")
	writeln(sb, ")")
}

func (g *MesonBuildGen) Generate(cfg *makefile.Config) string {
	var sb strings.Builder

	languages := quoteList(Languages(cfg), ", ")
	cppSources := cfg.List("CPP_SOURCES")

	g.writeProject(&sb, g.ProjectName(cfg), languages)
	writeln(&sb)

	writeFiles(&sb, "sources", cfg.List("C_SOURCES"))
	writeln(&sb)
	writeFiles(&sb, "asm_sources", cfg.List("ASM_SOURCES"))
	writeln(&sb)
	if len(cppSources) > 0 {
		writeFiles(&sb, "cpp_sources", cppSources)
		writeln(&sb)
	}

	writeln(&sb, "inc_dirs = include_directories(")
	writeln(&sb, "  ", quoteList(IncludeDirs(cfg), listSep))
	writeln(&sb, ")")
	writeln(&sb)

	writeln(&sb, "# Preprocessor definitions passed to the compiler")
	writeln(&sb, "project_defs = [")
	writeln(&sb, "  ", quoteList(cfg.List("C_DEFS"), listSep))
	writeln(&sb, "]")
	writeln(&sb, "add_project_arguments(project_defs, language: [", languages, "])")
	writeln(&sb)

	writeln(&sb, "# Linker arguments, including the linker script")
	writeln(&sb, "linker_script_file = ", quote(cfg.GetOr("LDSCRIPT", "")))
	writeln(&sb, "linker_script_dep = files(linker_script_file)")
	writeln(&sb, "# Linker arguments from cross_file.txt are added by Meson automatically.")
	writeln(&sb, "# Only the target specific ones, i.e. the linker script, are added here.")
	writeln(&sb, "project_link_args = ['-T', join_paths(meson.project_source_root(), linker_script_file)]")
	writeln(&sb)

	executableSources := "sources, asm_sources"
	if len(cppSources) > 0 {
		executableSources += ", cpp_sources"
	}
	writeln(&sb, "# Firmware .elf executable")
	write(&sb, `elf_file = executable(
  meson.project_name() + '.elf',
  `, executableSources, `,
  include_directories: inc_dirs,
  link_args: project_link_args,
  link_depends: linker_script_dep
)

`)

	write(&sb, `# --- Post-build steps ---
# Meson picks up the tools defined in [binaries] of the cross file
objcopy = find_program('objcopy')
size_tool = find_program('size')

`)
	g.writeObjcopy(&sb, "bin", "binary", "Raw .bin image from the .elf")
	writeln(&sb)
	g.writeObjcopy(&sb, "hex", "ihex", "Intel .hex image from the .elf")
	writeln(&sb)

	write(&sb, `# Print the firmware size
run_target(
  'size',
  command: [size_tool, '--format=berkeley', elf_file]
)

`)

	writeln(&sb, "# Optional flash target through OpenOCD")
	writeln(&sb, "openocd = find_program('openocd', required: false)")
	writeln(&sb, "if openocd.found()")
	writeln(&sb, "  run_target(")
	writeln(&sb, "    'flash',")
	writeln(&sb, "    command: [")
	writeln(&sb, "      openocd,")
	writeln(&sb, "      '-f', ", quote(g.FlashInterface), ",")
	writeln(&sb, "      '-f', ", quote(g.FlashTarget), ",")
	writeln(&sb, "      '-c', 'program @INPUT@ verify reset exit'")
	writeln(&sb, "    ],")
	writeln(&sb, "    depends: elf_file")
	writeln(&sb, "  )")
	writeln(&sb, "endif")

	return sb.String()
}

func (g *MesonBuildGen) writeObjcopy(sb *strings.Builder, ext, format, comment string) {
	writeln(sb, "# ", comment)
	writeln(sb, "custom_target(")
	writeln(sb, "    meson.project_name() + '.", ext, "',")
	writeln(sb, "    input: elf_file,")
	writeln(sb, "    output: meson.project_name() + '.", ext, "',")
	writeln(sb, "    command: [objcopy, '-O', ", quote(format), ", '@INPUT@', '@OUTPUT@'],")
	writeln(sb, "    build_by_default: true")
	writeln(sb, ")")
}
