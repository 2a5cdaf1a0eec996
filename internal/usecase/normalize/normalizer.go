package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/searchlens/internal/domain"
	"github.com/kailas-cloud/searchlens/internal/domain/search/hit"
	"github.com/kailas-cloud/searchlens/internal/domain/search/result"
)

// Normalizer maps raw hits onto result.Normalized using one Schema.
// It is pure and holds no mutable state.
type Normalizer struct {
	schema Schema
}

// New creates a normalizer. A nil schema means DefaultSchema.
func New(schema Schema) *Normalizer {
	if schema == nil {
		schema = DefaultSchema()
	}
	return &Normalizer{schema: schema}
}

// Normalize converts hits in engine order. Rank is the 1-based position,
// whatever ranking fields the engine attached.
func (n *Normalizer) Normalize(hits []hit.Raw) []result.Normalized {
	out := make([]result.Normalized, len(hits))
	for i, h := range hits {
		out[i] = n.normalizeOne(i+1, h)
	}
	return out
}

func (n *Normalizer) normalizeOne(rank int, h hit.Raw) result.Normalized {
	return result.Normalized{
		Rank:         rank,
		Title:        n.text(h, Title, domain.NoTitle),
		Identifier:   n.text(h, Identifier, domain.NoValue),
		Author:       n.text(h, Author, domain.NoValue),
		Organization: n.text(h, Organization, domain.NoValue),
		Industry:     n.text(h, Industry, domain.NoValue),
		Tags:         n.list(h, Tags),
		PublishTime:  n.text(h, PublishTime, domain.NoValue),
		SourceURL:    n.text(h, SourceURL, domain.NoValue),
		Poster:       n.text(h, Poster, domain.NoValue),
		Description:  n.text(h, Description, domain.NoValue),
		Content:      n.text(h, Content, ""),
		PDFLink:      n.text(h, PDFLink, ""),
		FileURL:      n.text(h, FileURL, ""),
	}
}

// text returns the first non-empty candidate value as a string, else placeholder.
func (n *Normalizer) text(h hit.Raw, f Field, placeholder string) string {
	for _, key := range n.schema[f] {
		if s, ok := stringify(h[key]); ok {
			return s
		}
	}
	return placeholder
}

// list returns the first non-empty candidate value as a slice of strings.
func (n *Normalizer) list(h hit.Raw, f Field) []string {
	for _, key := range n.schema[f] {
		if items := listify(h[key]); len(items) > 0 {
			return items
		}
	}
	return []string{}
}

func stringify(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case []any, []string:
		items := listify(val)
		if len(items) == 0 {
			return "", false
		}
		return strings.Join(items, ", "), true
	default:
		s := strings.TrimSpace(scalarString(val))
		return s, s != ""
	}
}

func listify(v any) []string {
	var raw []any
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		raw = val
	case []string:
		raw = make([]any, len(val))
		for i, s := range val {
			raw[i] = s
		}
	default:
		if s, ok := stringify(val); ok {
			return []string{s}
		}
		return nil
	}

	items := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := stringify(item); ok {
			items = append(items, s)
		}
	}
	return items
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
