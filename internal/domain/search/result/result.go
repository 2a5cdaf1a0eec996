package result

import "strings"

// Normalized is a search hit mapped onto the canonical record.
// Optional text fields hold domain.NoValue when the hit lacks them;
// PDFLink and FileURL stay empty so callers can skip rendering links.
type Normalized struct {
	Rank         int      `json:"rank"`
	Title        string   `json:"title"`
	Identifier   string   `json:"identifier"`
	Author       string   `json:"author"`
	Organization string   `json:"organization"`
	Industry     string   `json:"industry"`
	Tags         []string `json:"tags"`
	PublishTime  string   `json:"publish_time"`
	SourceURL    string   `json:"source_url"`
	Poster       string   `json:"poster"`
	Description  string   `json:"description"`
	Content      string   `json:"content"`
	PDFLink      string   `json:"pdf_link,omitempty"`
	FileURL      string   `json:"file_url,omitempty"`
}

// HasContent reports whether there is text to enrich.
func (n *Normalized) HasContent() bool { return n.Content != "" }

// TagLine joins tags for single-line display.
func (n *Normalized) TagLine() string { return strings.Join(n.Tags, ", ") }

// Enriched is a normalized result plus generated artifacts.
type Enriched struct {
	Normalized
	Summary  string `json:"summary"`
	Keywords string `json:"keywords"`
}
