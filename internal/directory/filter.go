package directory

import "strings"

// Filter returns the people whose full name, company, role or country
// contains query, ignoring case. The query is matched as typed, surrounding
// spaces included. An empty query matches everyone.
func Filter(people []Person, query string) []Person {
	q := strings.ToLower(query)
	if q == "" {
		return people
	}

	out := make([]Person, 0, len(people))
	for _, p := range people {
		if matches(p, q) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p Person, q string) bool {
	for _, field := range []string{p.FirstName + " " + p.LastName, p.Company.Name, p.Company.Title, p.Address.Country} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
