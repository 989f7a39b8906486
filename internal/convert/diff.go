package convert

import (
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const diffContext = 3

type diffLine struct {
	op   diffmatchpatch.Operation
	text string
}

func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// lineDiff returns a line-based diff of two file contents, with unchanged
// runs cut down to a few lines of context. It returns "" when the contents
// are equal.
func lineDiff(oldText, newText, name string) string {
	if oldText == newText {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var all []diffLine
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			all = append(all, diffLine{op: d.Type, text: strings.TrimSuffix(line, "\n")})
		}
	}

	// keep lines within diffContext of a change
	keep := make([]bool, len(all))
	for i, l := range all {
		if l.op == diffmatchpatch.DiffEqual {
			continue
		}
		for j := max(0, i-diffContext); j <= min(len(all)-1, i+diffContext); j++ {
			keep[j] = true
		}
	}

	var sb strings.Builder
	sb.WriteString(color.New(color.Bold).Sprint("--- ", name, "\n+++ ", name, " (new)"))
	sb.WriteByte('\n')
	skipped := false
	for i, l := range all {
		if !keep[i] {
			skipped = true
			continue
		}
		if skipped {
			sb.WriteString(color.CyanString("@@ ... @@"))
			sb.WriteByte('\n')
			skipped = false
		}
		switch l.op {
		case diffmatchpatch.DiffInsert:
			sb.WriteString(color.GreenString("+%s", l.text))
		case diffmatchpatch.DiffDelete:
			sb.WriteString(color.RedString("-%s", l.text))
		default:
			sb.WriteString(" " + l.text)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
