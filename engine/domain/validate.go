package domain

import "strings"

// ValidateQuery rejects empty or whitespace-only search queries. It is the
// pre-flight gate on the query path: nothing may be embedded or sent to the
// store for a query that fails here.
func ValidateQuery(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyQuery
	}
	return nil
}
