package db

import "strings"

// QuoteIdent quotes a PostgreSQL identifier, preserving its case.
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// QualifiedName quotes a schema-qualified relation name as "schema"."name".
// An empty schema yields a single quoted identifier.
func QualifiedName(schema, name string) string {
	if schema == "" {
		return QuoteIdent(name)
	}
	return QuoteIdent(schema) + "." + QuoteIdent(name)
}

// QuoteIdents maps a list of column names to their quoted forms.
func QuoteIdents(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = QuoteIdent(c)
	}
	return out
}
