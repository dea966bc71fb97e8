package postgres

import "strings"

// prefixColumns qualifies each column in a comma-separated list with a
// table alias, for use in joined queries
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func joinSets(sets []string) string {
	return strings.Join(sets, ", ")
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
