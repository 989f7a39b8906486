package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// EnumValue is a string flag restricted to a fixed set of choices. The
// help text of each choice is shown during shell completion.
type EnumValue struct {
	value   string
	choices []string // sorted
	help    map[string]string
}

func NewEnumValue(defaultVal string, allowed map[string]string) *EnumValue {
	if _, ok := allowed[defaultVal]; !ok {
		panic(fmt.Sprintf("default value %q not in allowed set", defaultVal))
	}
	return &EnumValue{
		value:   defaultVal,
		choices: slices.Sorted(maps.Keys(allowed)),
		help:    allowed,
	}
}

func (e *EnumValue) String() string { return e.value }

// Type is printed next to the flag name in the usage, e.g. "json|toml|yaml"
func (e *EnumValue) Type() string { return strings.Join(e.choices, "|") }

func (e *EnumValue) Set(v string) error {
	if !slices.Contains(e.choices, v) {
		return fmt.Errorf("%q is not one of %s", v, strings.Join(e.choices, ", "))
	}
	e.value = v
	return nil
}

func (e *EnumValue) Choices() []string { return slices.Clone(e.choices) }

// Complete is a cobra flag completion function offering the choices that
// start with toComplete
func (e *EnumValue) Complete(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var items []string
	for _, k := range e.choices {
		if !strings.HasPrefix(k, toComplete) {
			continue
		}
		if help := e.help[k]; help != "" {
			k += "\t" + help
		}
		items = append(items, k)
	}
	return items, cobra.ShellCompDirectiveNoFileComp
}
