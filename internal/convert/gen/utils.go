package gen

import "strings"

func write(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
}
func writeln(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
	sb.WriteByte('\n')
}

var mesonStringEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// quote turns s into a single-quoted Meson string literal
func quote(s string) string { return "'" + mesonStringEscaper.Replace(s) + "'" }

// quoteList quotes every non-empty item and joins them with sep
func quoteList(items []string, sep string) string {
	quoted := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		quoted = append(quoted, quote(item))
	}
	return strings.Join(quoted, sep)
}
