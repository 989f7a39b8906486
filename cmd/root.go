// cubemeson <Makefile>, cubemeson convert <Makefile>
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/qobs-build/cubemeson/internal/convert"
	"github.com/qobs-build/cubemeson/internal/makefile"
	"github.com/qobs-build/cubemeson/internal/msg"
	"github.com/spf13/cobra"
)

var (
	flagOutputDir     string
	flagToolchainPath string
	flagConfig        string
	flagCheck         bool
	flagDiff          bool
	flagWatch         bool
	flagCheckSources  bool
)

func newConverter(path string) *convert.Converter {
	return convert.NewConverter(path, convert.Settings{
		OutputDir:     flagOutputDir,
		ToolchainPath: flagToolchainPath,
		OptionsPath:   flagConfig,
		CheckSources:  flagCheckSources,
	})
}

// render parses the Makefile and renders the outputs, reporting an
// unreadable Makefile. ok is false when there is nothing to write.
func render(c *convert.Converter) (outputs []convert.Output, ok bool, err error) {
	fmt.Printf("%s %s\n", color.HiCyanString("Parsing"), filepath.ToSlash(c.Makefile()))
	_, outputs, err = c.Render()
	if errors.Is(err, makefile.ErrUnreadable) {
		msg.Error("%v", err)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return outputs, true, nil
}

func printDiffs(outputs []convert.Output) int {
	diffs := convert.Diff(outputs)
	for _, d := range diffs {
		fmt.Print(d)
	}
	return len(diffs)
}

func runConversion(c *convert.Converter) (bool, error) {
	outputs, ok, err := render(c)
	if !ok || err != nil {
		return false, err
	}
	if flagDiff {
		printDiffs(outputs)
	}
	return true, c.Write(outputs)
}

func doCheck(c *convert.Converter) {
	outputs, ok, err := render(c)
	if err != nil {
		msg.Fatal("%v", err)
	}
	if !ok {
		return
	}
	if n := printDiffs(outputs); n > 0 {
		msg.Fatal("%d output file(s) in %s are out of date", n, filepath.ToSlash(c.OutputDir()))
	}
	msg.Info("outputs in %s are up to date", filepath.ToSlash(c.OutputDir()))
}

func printNextSteps(c *convert.Converter) {
	w := &msg.IndentWriter{Indent: "  ", W: os.Stdout}
	fmt.Printf("\n%s\n", color.HiGreenString("Conversion finished!"))

	fmt.Println("\nTo configure the project (only once):")
	if dir := filepath.Clean(c.OutputDir()); dir != "." {
		fmt.Fprintf(w, "cd %s\n", filepath.ToSlash(dir))
	}
	fmt.Fprintf(w, "%s\n", color.HiCyanString("meson setup builddir --cross-file cross_file.txt"))
	fmt.Println("\nTo build the project:")
	fmt.Fprintf(w, "%s\n", color.HiCyanString("meson compile -C builddir"))
	fmt.Println("\nTo print the firmware size:")
	fmt.Fprintf(w, "%s\n", color.HiCyanString("meson compile -C builddir size"))
	fmt.Println("\nTo flash the device (if OpenOCD is available):")
	fmt.Fprintf(w, "%s\n", color.HiCyanString("meson compile -C builddir flash"))
}

func doWatch(c *convert.Converter) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	msg.Info("watching %s for changes, press Ctrl+C to stop", filepath.ToSlash(c.Makefile()))
	err := c.Watch(ctx, func() {
		if _, err := runConversion(c); err != nil {
			msg.Error("%v", err)
		}
	}, func(err error) {
		msg.Warn("watch: %v", err)
	})
	if err != nil {
		msg.Fatal("%v", err)
	}
}

func doConvert(cmd *cobra.Command, args []string) {
	c := newConverter(args[0])

	if flagCheck {
		doCheck(c)
		return
	}

	ok, err := runConversion(c)
	if err != nil {
		msg.Fatal("%v", err)
	}
	if !ok {
		return
	}
	printNextSteps(c)

	if flagWatch {
		doWatch(c)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cubemeson [flags] <Makefile>",
	Short: "Convert a STM32CubeMX Makefile into Meson build files",
	Long: `Convert a STM32CubeMX generated Makefile into a meson.build and a
cross_file.txt for the arm-none-eabi toolchain.`,
	Args: cobra.ExactArgs(1),
	Run:  doConvert,
}

var convertCmd = &cobra.Command{
	Use:   "convert [flags] <Makefile>",
	Short: "Convert a Makefile (same as running cubemeson without a subcommand)",
	Args:  cobra.ExactArgs(1),
	Run:   doConvert,
}

func init() {
	addConvertFlags(rootCmd)

	// cubemeson convert subcommand
	rootCmd.AddCommand(convertCmd)
	addConvertFlags(convertCmd)
}

func addConvertFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagOutputDir, "output-dir", "o", ".", "Directory for meson.build and cross_file.txt")
	cmd.Flags().StringVarP(&flagToolchainPath, "toolchain-path", "t", "", "Directory holding the arm-none-eabi binaries (default: look them up on PATH)")
	cmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Options file (default: "+convert.OptionsFilename+" next to the Makefile, if present)")
	cmd.Flags().BoolVar(&flagCheck, "check", false, "Don't write anything, fail if the outputs are out of date")
	cmd.Flags().BoolVar(&flagDiff, "diff", false, "Print a diff of every output that changes")
	cmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "Regenerate the outputs whenever the Makefile changes")
	cmd.Flags().BoolVar(&flagCheckSources, "check-sources", false, "Warn about sources and include directories that don't exist")
	cmd.MarkFlagsMutuallyExclusive("check", "watch")
	cmd.MarkFlagDirname("output-dir")
	cmd.MarkFlagDirname("toolchain-path")
	cmd.MarkFlagFilename("config", "toml")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
