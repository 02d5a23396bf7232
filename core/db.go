package core

import "strings"

// DBOrdering is a single ORDER BY term.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderByClause maps the requested orderings onto the allowed columns ({field: column})
// and returns "col1 ASC, col2 DESC". Unknown fields are dropped; def is used when nothing remains.
func OrderByClause(ords []DBOrdering, allowed map[string]string, def DBOrdering) string {
	terms := make([]string, 0, len(ords))
	for _, ord := range ords {
		if col, ok := allowed[ord.Field]; ok {
			terms = append(terms, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(terms) == 0 {
		return def.String()
	}
	return strings.Join(terms, ", ")
}
