package convert

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"regexp"
	"runtime"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"
	"github.com/qobs-build/cubemeson/internal/convert/gen"
	"github.com/qobs-build/cubemeson/internal/makefile"
)

const OptionsFilename = "cubemeson.toml"

type Options struct {
	Project   ProjectSection   `toml:"project"`
	Toolchain ToolchainSection `toml:"toolchain"`
	Flash     FlashSection     `toml:"flash"`
	Sources   SourcesSection   `toml:"sources"`
}

// ProjectSection defines the [project] section
type ProjectSection struct {
	Name           string   `toml:"name"`
	DefaultOptions []string `toml:"default_options"`
}

// ToolchainSection defines the [toolchain] section
type ToolchainSection struct {
	Prefix string `toml:"prefix"`
	Path   string `toml:"path"`
}

// FlashSection defines the [flash] section
type FlashSection struct {
	Interface string `toml:"interface"`
	Target    string `toml:"target"`
}

// SourcesSection defines the [sources] section
type SourcesSection struct {
	Exclude []string `toml:"exclude"`
	Extra   []string `toml:"extra"`
}

// DefaultOptions returns the options used when there is no options file
func DefaultOptions() *Options {
	return &Options{
		Project: ProjectSection{
			Name:           gen.DefaultProjectName,
			DefaultOptions: append([]string{}, gen.DefaultProjectOptions...),
		},
		Toolchain: ToolchainSection{Prefix: gen.DefaultPrefix},
		Flash: FlashSection{
			Interface: gen.DefaultFlashInterface,
			Target:    gen.DefaultFlashTarget,
		},
	}
}

// OptionsEnv is the environment {{...}} expressions in the options file are
// evaluated in
type OptionsEnv struct {
	Target     string            `expr:"target"`
	CPU        string            `expr:"cpu"`
	FPU        string            `expr:"fpu"`
	FloatABI   string            `expr:"float_abi"`
	MCU        string            `expr:"mcu"`
	Opt        string            `expr:"opt"`
	Debug      bool              `expr:"debug"`
	Prefix     string            `expr:"prefix"`
	LDScript   string            `expr:"ldscript"`
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
}

func NewOptionsEnv(cfg *makefile.Config) OptionsEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}

	return OptionsEnv{
		Target:     cfg.GetOr("TARGET", ""),
		CPU:        gen.CPU(cfg),
		FPU:        cfg.GetOr("FPU", ""),
		FloatABI:   cfg.GetOr("FLOAT_ABI", ""),
		MCU:        cfg.GetOr("MCU", ""),
		Opt:        cfg.GetOr("OPT", ""),
		Debug:      cfg.GetOr("DEBUG", "") == "1",
		Prefix:     cfg.GetOr("PREFIX", ""),
		LDScript:   cfg.GetOr("LDSCRIPT", ""),
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
	}
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env OptionsEnv) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var builder strings.Builder
	lastIndex := 0

	for _, matchIndexes := range matches {
		fullMatchStart := matchIndexes[0]
		fullMatchEnd := matchIndexes[1]
		expressionStart := matchIndexes[2]
		expressionEnd := matchIndexes[3]

		builder.WriteString(s[lastIndex:fullMatchStart])

		expression := strings.TrimSpace(s[expressionStart:expressionEnd])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("failed to run expression %q: %w", expression, err)
		}

		builder.WriteString(fmt.Sprintf("%v", result))
		lastIndex = fullMatchEnd
	}

	builder.WriteString(s[lastIndex:])

	return builder.String(), nil
}

// evaluateAll evaluates the expressions of every string a field points to
func evaluateAll(env OptionsEnv, fields ...*string) error {
	for _, f := range fields {
		v, err := evaluateString(*f, env)
		if err != nil {
			return err
		}
		*f = v
	}
	return nil
}

func evaluateSlice(env OptionsEnv, s []string) error {
	for i := range s {
		if err := evaluateAll(env, &s[i]); err != nil {
			return err
		}
	}
	return nil
}

// mergeStructs overwrites the fields of dst with every field of src that is
// set, descending into nested structs
func mergeStructs(dst, src any) error {
	dstVal := reflect.ValueOf(dst)
	if dstVal.Kind() != reflect.Pointer || dstVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dst must be a pointer to a struct")
	}

	dstElem := dstVal.Elem()
	srcVal := reflect.ValueOf(src)

	if srcVal.Kind() == reflect.Pointer {
		srcVal = srcVal.Elem()
	}

	if srcVal.Kind() != reflect.Struct {
		return fmt.Errorf("src must be a struct or a pointer to a struct")
	}

	if dstElem.Type() != srcVal.Type() {
		return fmt.Errorf("dst and src must be of the same struct type")
	}

	for i := range srcVal.NumField() {
		srcField := srcVal.Field(i)
		dstField := dstElem.Field(i)

		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Struct:
			if err := mergeStructs(dstField.Addr().Interface(), srcField.Interface()); err != nil {
				return err
			}
		case reflect.Slice:
			// an explicitly empty list clears the default
			if !srcField.IsNil() {
				dstField.Set(srcField)
			}
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}

	return nil
}

// ParseOptions reads an options file on top of DefaultOptions. Keys that
// are not set keep their default value.
func ParseOptions(rdr io.Reader) (*Options, error) {
	var parsed Options
	dec := toml.NewDecoder(rdr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&parsed); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, errors.New(derr.String())
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return nil, errors.New(serr.String())
		}
		return nil, err
	}

	opts := DefaultOptions()
	if err := mergeStructs(opts, parsed); err != nil {
		return nil, err
	}
	return opts, nil
}

// ParseOptionsFromFile parses the options file at path. A missing file
// yields the defaults when optional is set.
func ParseOptionsFromFile(path string, optional bool) (*Options, error) {
	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return DefaultOptions(), nil
		}
		return nil, err
	}
	defer f.Close()

	opts, err := ParseOptions(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

// Resolve returns a copy of the options with every {{...}} expression
// evaluated against the extracted Makefile variables
func (o Options) Resolve(cfg *makefile.Config) (*Options, error) {
	env := NewOptionsEnv(cfg)
	res := o
	res.Project.DefaultOptions = append([]string{}, o.Project.DefaultOptions...)
	res.Sources.Exclude = append([]string{}, o.Sources.Exclude...)
	res.Sources.Extra = append([]string{}, o.Sources.Extra...)

	if err := evaluateAll(env,
		&res.Project.Name,
		&res.Toolchain.Prefix,
		&res.Toolchain.Path,
		&res.Flash.Interface,
		&res.Flash.Target,
	); err != nil {
		return nil, fmt.Errorf("error processing expressions in options: %w", err)
	}
	for _, s := range [][]string{res.Project.DefaultOptions, res.Sources.Exclude, res.Sources.Extra} {
		if err := evaluateSlice(env, s); err != nil {
			return nil, fmt.Errorf("error processing expressions in options: %w", err)
		}
	}
	return &res, nil
}
