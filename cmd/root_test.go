package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) {
	t.Helper()
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
}

func TestRootUnreadableMakefile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	execute(t, "-o", out, filepath.Join(t.TempDir(), "Makefile"))

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "output directory must not be created")
}

func TestRootConvertAndCheck(t *testing.T) {
	mk := filepath.Join(t.TempDir(), "Makefile")
	require.NoError(t, os.WriteFile(mk, []byte("TARGET = blink\nCPU = -mcpu=cortex-m4\nLDSCRIPT = FLASH.ld\n"), 0o644))
	out := filepath.Join(t.TempDir(), "build")

	execute(t, "convert", "-o", out, mk)
	for _, name := range []string{"meson.build", "cross_file.txt"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}

	// up to date, so --check returns instead of exiting
	execute(t, "convert", "--check", "-o", out, mk)
	flagCheck = false
}
