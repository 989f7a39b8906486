// cubemeson init [dir]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/qobs-build/cubemeson/internal/convert"
	"github.com/qobs-build/cubemeson/internal/msg"
	"github.com/spf13/cobra"
)

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	} else {
		msg.Warn("%s already exists, leaving it alone", filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "cubemeson"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

const optionsTemplate = `# Options for converting the Makefile in this directory.
# Every key is optional. String values may contain {{ expressions }}, e.g.
#   target = "target/{{ cpu == 'cortex-m7' ? 'stm32f7x' : 'stm32f4x' }}.cfg"
# Available variables: target, cpu, fpu, float_abi, mcu, opt, debug, prefix,
# ldscript, target_os, target_arch, environ.

[project]
# Project name when the Makefile has no TARGET
name = "firmware"
default_options = ["b_lto=false", "b_map=true", "b_staticpic=false"]

[toolchain]
# Used when the Makefile has no PREFIX
prefix = "arm-none-eabi-"
# Directory of the toolchain binaries, overridden by --toolchain-path
# path = "/opt/gcc-arm-none-eabi/bin"

[flash]
# OpenOCD config files used by the flash target
interface = "interface/stlink.cfg"
target = "target/stm32f4x.cfg"

[sources]
# Patterns removed from the C, C++ and assembly source lists
exclude = []
# Globs, relative to this directory, appended to the source lists
extra = []
`

// initIn writes an options file into an existing directory
func initIn(dir string) {
	writefile(optionsTemplate, dir, convert.OptionsFilename)

	programName := getProgramName()
	fmt.Printf("Edit it, then run %s to convert the Makefile.\n", color.HiCyanString(programName+" "+filepath.ToSlash(filepath.Join(dir, "Makefile"))))
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a " + convert.OptionsFilename + " options file",
	Long:  `Create a ` + convert.OptionsFilename + ` options file with the default settings. If no directory is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
			mkdir(dir)
		}
		initIn(dir)
	},
}

func init() {
	// cubemeson init subcommand
	rootCmd.AddCommand(initCmd)
}
