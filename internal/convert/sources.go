package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/qobs-build/cubemeson/internal/makefile"
)

// source lists that [sources] exclude/extra apply to, by file extension
var sourceLists = map[string]string{
	".c":   "C_SOURCES",
	".cpp": "CPP_SOURCES",
	".cc":  "CPP_SOURCES",
	".cxx": "CPP_SOURCES",
	".s":   "ASM_SOURCES",
	".S":   "ASM_SOURCES",
}

var sourceListNames = []string{"C_SOURCES", "CPP_SOURCES", "ASM_SOURCES"}

// excludeSources drops every file matching one of the patterns
func excludeSources(files, patterns []string) []string {
	if len(patterns) == 0 {
		return files
	}
	kept := make([]string, 0, len(files))
outer:
	for _, file := range files {
		slashed := filepath.ToSlash(file)
		for _, pat := range patterns {
			if ok, _ := doublestar.Match(pat, slashed); ok {
				continue outer
			}
		}
		kept = append(kept, file)
	}
	return kept
}

// globExtraSources expands the extra patterns relative to basedir and
// groups the matches by source list
func globExtraSources(basedir string, patterns []string) (map[string][]string, error) {
	extra := make(map[string][]string)
	fsys := os.DirFS(basedir)

	for _, pat := range patterns {
		matches, err := doublestar.Glob(fsys, pat, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("while globbing %q: %w", pat, err)
		}
		slices.Sort(matches)
		for _, match := range matches {
			list, ok := sourceLists[filepath.Ext(match)]
			if !ok {
				continue
			}
			extra[list] = append(extra[list], match)
		}
	}
	return extra, nil
}

func validatePatterns(patterns []string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("invalid source pattern %q", pat)
		}
	}
	return nil
}

// applySources returns cfg with the [sources] section of opts applied:
// extra files are appended after the Makefile's own, then excludes are
// removed from all source lists
func applySources(cfg *makefile.Config, opts *Options, basedir string) (*makefile.Config, error) {
	if len(opts.Sources.Exclude) == 0 && len(opts.Sources.Extra) == 0 {
		return cfg, nil
	}
	if err := validatePatterns(opts.Sources.Exclude); err != nil {
		return nil, err
	}
	if err := validatePatterns(opts.Sources.Extra); err != nil {
		return nil, err
	}

	extra, err := globExtraSources(basedir, opts.Sources.Extra)
	if err != nil {
		return nil, err
	}

	for _, name := range sourceListNames {
		files := cfg.List(name)
		for _, file := range extra[name] {
			if !slices.ContainsFunc(files, func(f string) bool { return sameSource(f, file) }) {
				files = append(files, file)
			}
		}
		cfg = cfg.WithList(name, excludeSources(files, opts.Sources.Exclude))
	}
	return cfg, nil
}

func sameSource(a, b string) bool {
	return filepath.ToSlash(filepath.Clean(a)) == filepath.ToSlash(filepath.Clean(b))
}
