package core

import "strings"

// DBOrdering describes a single ORDER BY term.
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

// ParseOrderings parses a comma-separated sort expression ("name,-date")
// into DBOrderings; a leading "-" marks a descending term.
func ParseOrderings(sort string) []DBOrdering {
	if sort == "" {
		return nil
	}
	var ords []DBOrdering
	for _, field := range strings.Split(sort, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ords = append(ords, DBOrdering{Field: field, Ascending: !descending})
	}
	return ords
}

// OrderingsToSQL renders orderings as an ORDER BY clause body, restricted
// to the allowed column names. Returns "" if nothing survives.
func OrderingsToSQL(ords []DBOrdering, allowed map[string]string) string {
	terms := make([]string, 0, len(ords))
	for _, ord := range ords {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		terms = append(terms, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	return strings.Join(terms, ", ")
}
