// cubemeson dump <Makefile>
package cmd

import (
	"errors"
	"os"

	"github.com/qobs-build/cubemeson/internal/makefile"
	"github.com/qobs-build/cubemeson/internal/msg"
	"github.com/spf13/cobra"
)

var flagFormat = NewEnumValue(makefile.FormatYAML, map[string]string{
	makefile.FormatYAML: "YAML (default)",
	makefile.FormatJSON: "Indented JSON",
	makefile.FormatTOML: "TOML",
})

func doDump(cmd *cobra.Command, args []string) {
	cfg, err := makefile.ParseFile(args[0])
	if errors.Is(err, makefile.ErrUnreadable) {
		msg.Error("%v", err)
		return
	}
	if err != nil {
		msg.Fatal("%v", err)
	}

	out, err := cfg.Encode(flagFormat.String())
	if err != nil {
		msg.Fatal("%v", err)
	}
	os.Stdout.Write(out)
}

var dumpCmd = &cobra.Command{
	Use:   "dump <Makefile>",
	Short: "Print the variables extracted from a Makefile",
	Args:  cobra.ExactArgs(1),
	Run:   doDump,
}

func init() {
	// cubemeson dump subcommand
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().VarP(flagFormat, "format", "f", "Output format")
	dumpCmd.RegisterFlagCompletionFunc("format", flagFormat.Complete)
}
