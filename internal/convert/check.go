package convert

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/qobs-build/cubemeson/internal/convert/gen"
	"github.com/qobs-build/cubemeson/internal/makefile"
	"github.com/qobs-build/cubemeson/internal/msg"
	"golang.org/x/sync/errgroup"
)

// MissingPath is a path named by the Makefile that does not exist
type MissingPath struct {
	Var  string // Makefile variable the path came from
	Path string
}

type pathCheck struct {
	variable string
	path     string
	isDir    bool
}

func collectChecks(cfg *makefile.Config) []pathCheck {
	var checks []pathCheck
	for _, name := range []string{"C_SOURCES", "CPP_SOURCES", "ASM_SOURCES"} {
		for _, src := range cfg.List(name) {
			checks = append(checks, pathCheck{variable: name, path: src})
		}
	}
	for _, inc := range gen.IncludeDirs(cfg) {
		checks = append(checks, pathCheck{variable: "C_INCLUDES", path: inc, isDir: true})
	}
	if ld := cfg.GetOr("LDSCRIPT", ""); ld != "" {
		checks = append(checks, pathCheck{variable: "LDSCRIPT", path: ld})
	}
	return checks
}

// CheckSources stats every source, include directory and the linker script
// relative to basedir and returns the ones that are missing, in Makefile
// order. progress may be nil.
func CheckSources(basedir string, cfg *makefile.Config, progress io.Writer) ([]MissingPath, error) {
	checks := collectChecks(cfg)
	missing := make([]bool, len(checks))

	var pb *msg.ProgressBar
	if progress != nil {
		pb = msg.NewProgressBar(int64(len(checks)), 2, progress)
	}

	eg, _ := errgroup.WithContext(context.Background())
	eg.SetLimit(runtime.NumCPU() * 4)

	for i, check := range checks {
		eg.Go(func() error {
			path := check.path
			if !filepath.IsAbs(path) {
				path = filepath.Join(basedir, path)
			}
			// unreadable counts as missing
			stat, err := os.Stat(path)
			missing[i] = err != nil || stat.IsDir() != check.isDir
			if pb != nil {
				pb.Add(1)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if pb != nil {
		pb.Finish()
	}

	var res []MissingPath
	for i, check := range checks {
		if missing[i] {
			res = append(res, MissingPath{Var: check.variable, Path: check.path})
		}
	}
	return res, nil
}
