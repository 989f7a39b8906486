package makefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var ErrUnreadable = errors.New("makefile could not be read")

// Variables read as a single trimmed line
var ScalarVars = []string{
	"TARGET", "CPU", "FPU", "FLOAT_ABI", "MCU", "DEBUG",
	"OPT", "LDSCRIPT", "PREFIX",
}

// Variables that may continue across lines with a trailing backslash
var ListVars = []string{"C_SOURCES", "CPP_SOURCES", "ASM_SOURCES", "C_INCLUDES", "C_DEFS"}

// Config holds the variables extracted from one Makefile. It is built once
// by Parse and only read afterwards.
type Config struct {
	scalars map[string]string
	lists   map[string][]string

	// LdflagsSpecs and LdflagsGC are the `-specs=...` and
	// `-Wl,--gc-sections` tokens of the LDFLAGS line, or nil.
	LdflagsSpecs *string
	LdflagsGC    *string
}

var (
	specsRegex      = regexp.MustCompile(`-specs=[\w.-]+`)
	gcSectionsRegex = regexp.MustCompile(`-Wl,--gc-sections`)
	splitRegex      = regexp.MustCompile(`\s+|\\`)
)

// singleLineRegex matches `NAME = value` at the start of a line. Whitespace
// around `=` never spans lines, so an empty assignment doesn't capture the
// line after it.
func singleLineRegex(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(name) + `[ \t]*=[ \t]*(.*)`)
}

// blockRegex matches an assignment continued with backslashes, up to a blank
// line, the next assignment or the end of the text. A one-line assignment
// matches too, so no separate single-line pass is needed for lists.
func blockRegex(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?ms)^` + regexp.QuoteMeta(name) + `[ \t]*=[ \t]*(?:\\\n)?(.*?)(?:\n\n|\n\w+[ \t]*=|\z)`)
}

// normalize rewrites the source so that only one spelling of every name
// and one line ending has to be matched
func normalize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "FLOAT-ABI", "FLOAT_ABI")
}

// splitValues splits a captured value on whitespace and line continuations,
// dropping empty entries
func splitValues(raw string) []string {
	items := splitRegex.Split(strings.TrimSpace(raw), -1)
	values := make([]string, 0, len(items))
	for _, item := range items {
		if item != "" {
			values = append(values, item)
		}
	}
	return values
}

func matchLine(content, name string) (string, bool) {
	m := singleLineRegex(name).FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func matchList(content, name string) []string {
	m := blockRegex(name).FindStringSubmatch(content)
	if m == nil {
		return []string{}
	}
	return splitValues(m[1])
}

// Parse extracts the known variables from the text of a Makefile. Missing
// variables are simply left out, so Parse never fails.
func Parse(content string) *Config {
	content = normalize(content)
	cfg := &Config{
		scalars: make(map[string]string),
		lists:   make(map[string][]string),
	}

	for _, name := range ScalarVars {
		if v, ok := matchLine(content, name); ok {
			cfg.scalars[name] = strings.TrimSpace(v)
		}
	}

	for _, name := range ListVars {
		cfg.lists[name] = matchList(content, name)
	}

	if ldflags, ok := matchLine(content, "LDFLAGS"); ok {
		if m := specsRegex.FindString(ldflags); m != "" {
			cfg.LdflagsSpecs = &m
		}
		if m := gcSectionsRegex.FindString(ldflags); m != "" {
			cfg.LdflagsGC = &m
		}
	}

	if libs, ok := matchLine(content, "LIBS"); ok {
		cfg.lists["LIBS"] = strings.Fields(libs)
	} else {
		cfg.lists["LIBS"] = []string{}
	}

	return cfg
}

func ParseReader(rdr io.Reader) (*Config, error) {
	data, err := io.ReadAll(bufio.NewReader(rdr))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return Parse(string(data)), nil
}

// ParseFile reads and parses the Makefile at path. The only error it
// returns wraps ErrUnreadable.
func ParseFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer f.Close()

	return ParseReader(f)
}

// Get returns a scalar variable and whether it was present
func (c *Config) Get(name string) (string, bool) {
	v, ok := c.scalars[name]
	return v, ok
}

// GetOr returns a scalar variable, or def if it was not present. A variable
// assigned an empty value is still present.
func (c *Config) GetOr(name, def string) string {
	if v, ok := c.scalars[name]; ok {
		return v
	}
	return def
}

// List returns a copy of a list variable, empty if it was not found
func (c *Config) List(name string) []string {
	return append([]string{}, c.lists[name]...)
}

// WithList returns a copy of the config with one list variable replaced
func (c *Config) WithList(name string, values []string) *Config {
	cp := &Config{
		scalars:      c.scalars,
		lists:        make(map[string][]string, len(c.lists)),
		LdflagsSpecs: c.LdflagsSpecs,
		LdflagsGC:    c.LdflagsGC,
	}
	for k, v := range c.lists {
		cp.lists[k] = v
	}
	clean := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			clean = append(clean, v)
		}
	}
	cp.lists[name] = clean
	return cp
}

// Vars returns every extracted variable keyed by its Makefile name, with
// the LDFLAGS-derived values under LDFLAGS_SPECS and LDFLAGS_GC.
func (c *Config) Vars() map[string]any {
	vars := make(map[string]any, len(c.scalars)+len(c.lists)+2)
	for k, v := range c.scalars {
		vars[k] = v
	}
	for k := range c.lists {
		vars[k] = c.List(k)
	}
	if c.LdflagsSpecs != nil {
		vars["LDFLAGS_SPECS"] = *c.LdflagsSpecs
	}
	if c.LdflagsGC != nil {
		vars["LDFLAGS_GC"] = *c.LdflagsGC
	}
	return vars
}
