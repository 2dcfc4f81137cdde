package repository

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching term literally anywhere
// in the column. Postgres treats backslash as the default LIKE escape.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
