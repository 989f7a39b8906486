package convert

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/qobs-build/cubemeson/internal/convert/gen"
	"github.com/qobs-build/cubemeson/internal/makefile"
	"github.com/qobs-build/cubemeson/internal/msg"
)

// Settings are the command line choices of one conversion
type Settings struct {
	// OutputDir receives meson.build and cross_file.txt. Defaults to ".".
	OutputDir string
	// ToolchainPath overrides [toolchain].path of the options file.
	ToolchainPath string
	// OptionsPath is an explicit options file. When empty, cubemeson.toml
	// next to the Makefile is used if it exists.
	OptionsPath string
	// CheckSources stats every file the Makefile names and warns about
	// missing ones.
	CheckSources bool
	// Quiet suppresses warnings and status lines.
	Quiet bool
}

// Output is one rendered file
type Output struct {
	Name    string
	Path    string
	Content string
	// Previous is the content currently on disk, "" if the file doesn't exist.
	Previous string
	Exists   bool
}

// Changed reports whether writing the output would modify the disk
func (o Output) Changed() bool { return !o.Exists || o.Previous != o.Content }

type Converter struct {
	makefile string
	basedir  string
	settings Settings
}

func NewConverter(makefilePath string, settings Settings) *Converter {
	if settings.OutputDir == "" {
		settings.OutputDir = "."
	}
	return &Converter{
		makefile: makefilePath,
		basedir:  filepath.Dir(makefilePath),
		settings: settings,
	}
}

func (c *Converter) Makefile() string { return c.makefile }

func (c *Converter) OutputDir() string { return c.settings.OutputDir }

// OptionsPath returns the options file in effect and whether it has to exist
func (c *Converter) OptionsPath() (string, bool) {
	if c.settings.OptionsPath != "" {
		return c.settings.OptionsPath, true
	}
	return filepath.Join(c.basedir, OptionsFilename), false
}

func (c *Converter) warn(format string, a ...any) {
	if !c.settings.Quiet {
		msg.Warn(format, a...)
	}
}

func (c *Converter) loadOptions(cfg *makefile.Config) (*Options, error) {
	path, required := c.OptionsPath()
	opts, err := ParseOptionsFromFile(path, !required)
	if err != nil {
		return nil, fmt.Errorf("failed to load options: %w", err)
	}
	return opts.Resolve(cfg)
}

// generators returns the cross file and meson.build generators configured
// from opts and the command line
func (c *Converter) generators(opts *Options) []gen.Generator {
	toolchainPath := c.settings.ToolchainPath
	if toolchainPath == "" {
		toolchainPath = opts.Toolchain.Path
	}

	cross := gen.NewCrossFileGen(toolchainPath)
	cross.Prefix = opts.Toolchain.Prefix

	build := gen.NewMesonBuildGen()
	build.Name = opts.Project.Name
	build.DefaultOptions = opts.Project.DefaultOptions
	build.FlashInterface = opts.Flash.Interface
	build.FlashTarget = opts.Flash.Target

	return []gen.Generator{cross, build}
}

// unexpandedRefs returns the tokens that still reference make variables
func unexpandedRefs(tokens []string) []string {
	var refs []string
	for _, tok := range tokens {
		if strings.Contains(tok, "$(") || strings.Contains(tok, "${") {
			refs = append(refs, tok)
		}
	}
	return refs
}

func (c *Converter) lint(cfg *makefile.Config, cross *gen.CrossFileGen) {
	if refs := unexpandedRefs(strings.Fields(cfg.GetOr("MCU", ""))); len(refs) > 0 {
		c.warn("MCU references make variables that are not expanded: %s", strings.Join(refs, " "))
	}
	if refs := unexpandedRefs(cfg.List("LIBS")); len(refs) > 0 {
		c.warn("LIBS references make variables that are not expanded: %s", strings.Join(refs, " "))
	}
	if _, ok := cfg.Get("LDSCRIPT"); !ok {
		c.warn("no LDSCRIPT found, the linker script path will be empty")
	}

	if findCompiler(cross.ToolchainPath, cross.ToolPrefix(cfg)) == "" {
		if cross.ToolchainPath != "" {
			c.warn("%s not found in %s", cross.ToolPrefix(cfg)+"gcc", cross.ToolchainPath)
		} else {
			c.warn("%s not found on PATH, pass --toolchain-path if it is installed elsewhere", cross.ToolPrefix(cfg)+"gcc")
		}
	}

	if c.settings.CheckSources {
		var progress io.Writer
		if !c.settings.Quiet {
			progress = os.Stdout
		}
		missing, err := CheckSources(c.basedir, cfg, progress)
		if err != nil {
			c.warn("could not check sources: %v", err)
			return
		}
		for _, m := range missing {
			c.warn("%s: %s does not exist", m.Var, m.Path)
		}
	}
}

// Render parses the Makefile and renders every output in memory. Nothing
// is written; an unreadable Makefile returns an error wrapping
// makefile.ErrUnreadable.
func (c *Converter) Render() (*makefile.Config, []Output, error) {
	cfg, err := makefile.ParseFile(c.makefile)
	if err != nil {
		return nil, nil, err
	}

	opts, err := c.loadOptions(cfg)
	if err != nil {
		return nil, nil, err
	}

	cfg, err = applySources(cfg, opts, c.basedir)
	if err != nil {
		return nil, nil, err
	}

	generators := c.generators(opts)
	c.lint(cfg, generators[0].(*gen.CrossFileGen))

	outputs := make([]Output, 0, len(generators))
	for _, g := range generators {
		out := Output{
			Name:    g.BuildFile(),
			Path:    filepath.Join(c.settings.OutputDir, g.BuildFile()),
			Content: g.Generate(cfg),
		}
		if data, err := os.ReadFile(out.Path); err == nil {
			out.Previous, out.Exists = string(data), true
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("failed to read existing %s: %w", out.Path, err)
		}
		outputs = append(outputs, out)
	}
	return cfg, outputs, nil
}

// Write creates the output directory and writes every changed output.
// Unchanged files are left alone.
func (c *Converter) Write(outputs []Output) error {
	if err := os.MkdirAll(c.settings.OutputDir, 0755); err != nil {
		return err
	}

	var changed []string
	for _, out := range outputs {
		if out.Exists && out.Changed() {
			changed = append(changed, out.Path)
		}
	}
	for _, path := range dirtyTracked(changed) {
		c.warn("%s has uncommitted changes that will be overwritten", filepath.ToSlash(path))
	}

	for _, out := range outputs {
		if !out.Changed() {
			c.status("Unchanged", out.Path)
			continue
		}
		if err := os.WriteFile(out.Path, []byte(out.Content), 0644); err != nil {
			return err
		}
		c.status("Wrote", out.Path)
	}
	return nil
}

func (c *Converter) status(verb, path string) {
	if !c.settings.Quiet {
		msg.Status(verb, "%s", filepath.ToSlash(path))
	}
}

// Convert renders and writes both outputs
func (c *Converter) Convert() error {
	_, outputs, err := c.Render()
	if err != nil {
		return err
	}
	return c.Write(outputs)
}

// Diff returns a printable diff for every output that would change
func Diff(outputs []Output) []string {
	var diffs []string
	for _, out := range outputs {
		if !out.Changed() {
			continue
		}
		diffs = append(diffs, lineDiff(out.Previous, out.Content, filepath.ToSlash(out.Path)))
	}
	return diffs
}
