package loader

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Field is a logical record field resolved from source columns.
type Field struct {
	Name    string
	Aliases []string
	Default string
}

// Fields lists the logical fields in resolution order. Aliases are tried in order and
// the first header that matches wins.
var Fields = []Field{
	{Name: "title", Aliases: []string{"논문제목", "논문명", "제목", "title"}, Default: "제목 없음"},
	{Name: "abstract", Aliases: []string{"초록", "국문 초록 (Abstract)", "abstract"}, Default: "초록 없음"},
	{Name: "journal", Aliases: []string{"저널명", "학술지명", "journal"}, Default: ""},
}

// maxAliasDistance bounds the fuzzy fallback used when no alias matches exactly.
const maxAliasDistance = 1

func normalizeHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Columns maps each logical field to the header columns that may carry it, in alias
// order. A row takes the first non-empty cell among them, otherwise the default.
type Columns map[string][]int

// Resolve matches header cells against the alias table. Exact matches (ignoring case
// and repeated whitespace) come first; a header within edit distance 1 of an alias is
// used only when no alias matched exactly.
func Resolve(header []string) Columns {
	norm := make([]string, len(header))
	for i, h := range header {
		norm[i] = normalizeHeader(h)
	}
	cols := Columns{}
	for _, f := range Fields {
		for _, alias := range f.Aliases {
			a := normalizeHeader(alias)
			for i, h := range norm {
				if h == a {
					cols[f.Name] = append(cols[f.Name], i)
				}
			}
		}
		if len(cols[f.Name]) > 0 {
			continue
		}
		for _, alias := range f.Aliases {
			a := normalizeHeader(alias)
			if len([]rune(a)) < 3 {
				continue
			}
			for i, h := range norm {
				if h != "" && levenshtein.ComputeDistance(h, a) <= maxAliasDistance {
					cols[f.Name] = append(cols[f.Name], i)
				}
			}
		}
	}
	return cols
}

// Value returns the first non-empty cell for field, or its default.
func (c Columns) Value(field string, row []string) string {
	for _, i := range c[field] {
		if i < len(row) {
			if v := strings.TrimSpace(row[i]); v != "" {
				return row[i]
			}
		}
	}
	for _, f := range Fields {
		if f.Name == field {
			return f.Default
		}
	}
	return ""
}

var breakTag = regexp.MustCompile(`(?i)<BR\s*/?>`)

// CleanAbstract turns HTML line breaks into newlines.
func CleanAbstract(s string) string {
	return breakTag.ReplaceAllString(s, "\n")
}
