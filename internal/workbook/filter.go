package workbook

import (
	"fmt"
	"strings"
	"unicode"
)

// Filter selects rows whose Column equals Value exactly (case-sensitive).
// The zero Value matches rows whose cell is empty.
type Filter struct {
	Table  string
	Column string
	Value  string
}

// Equals builds an equality filter on table[column].
func Equals(table, column, value string) Filter {
	return Filter{Table: table, Column: column, Value: value}
}

// Validate rejects identifiers that would break out of the formula's
// reference syntax and values carrying control characters.
func (f Filter) Validate() error {
	if err := checkIdent("table", f.Table); err != nil {
		return err
	}
	if err := checkIdent("column", f.Column); err != nil {
		return err
	}
	if i := strings.IndexFunc(f.Value, unicode.IsControl); i >= 0 {
		return fmt.Errorf("%w: value has control character at byte %d", ErrUnsafeFilter, i)
	}
	return nil
}

func checkIdent(kind, s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: empty %s name", ErrUnsafeFilter, kind)
	}
	if strings.ContainsAny(s, `"[]%(),`) || strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: %s name %q", ErrUnsafeFilter, kind, s)
	}
	return nil
}

// Formula compiles the filter to the workbook formula language:
//
//	=FILTER(Table, "Table[Column] = %", "value")
//
// The value is passed as a substitution argument, never spliced into the
// condition. Embedded double quotes are doubled.
func (f Filter) Formula() (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	value := strings.ReplaceAll(f.Value, `"`, `""`)
	return fmt.Sprintf(`=FILTER(%s, "%s[%s] = %%", "%s")`, f.Table, f.Table, f.Column, value), nil
}

func (f Filter) String() string {
	return fmt.Sprintf("%s[%s] = %q", f.Table, f.Column, f.Value)
}
