package convert

import (
	"os"
	"os/exec"
	"path/filepath"
)

// findCompiler reports where the cross C compiler `<prefix>gcc` would be
// taken from, or "" if it can't be found. With a toolchain directory the
// binary has to exist there, otherwise it is looked up on PATH.
func findCompiler(toolchainPath, prefix string) string {
	name := prefix + "gcc"

	if toolchainPath != "" {
		path := filepath.Join(toolchainPath, name)
		for _, candidate := range []string{path, path + ".exe"} {
			if stat, err := os.Stat(candidate); err == nil && !stat.IsDir() {
				return candidate
			}
		}
		return ""
	}

	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return ""
}
