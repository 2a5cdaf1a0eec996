// Package hit holds raw search engine hits.
package hit

// Raw is one hit exactly as the search engine returned it: field name to value.
// The key set varies between knowledge bases.
type Raw map[string]any
