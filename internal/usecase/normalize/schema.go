package normalize

import (
	"fmt"
	"slices"
)

// Field is a canonical result field.
type Field string

// Canonical fields.
const (
	Title        Field = "title"
	Identifier   Field = "identifier"
	Author       Field = "author"
	Organization Field = "organization"
	Industry     Field = "industry"
	Tags         Field = "tags"
	PublishTime  Field = "publish_time"
	SourceURL    Field = "source_url"
	Poster       Field = "poster"
	Description  Field = "description"
	Content      Field = "content"
	PDFLink      Field = "pdf_link"
	FileURL      Field = "file_url"
)

var allFields = []Field{
	Title, Identifier, Author, Organization, Industry, Tags, PublishTime,
	SourceURL, Poster, Description, Content, PDFLink, FileURL,
}

// ParseField validates a field name from configuration.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if !slices.Contains(allFields, f) {
		return "", fmt.Errorf("unknown result field %q", s)
	}
	return f, nil
}

// Schema maps each canonical field to hit keys tried in order.
type Schema map[Field][]string

// DefaultSchema covers the knowledge-base layouts seen so far:
// research reports (title/_sha256/author/...), the movies index
// (标题/id/标签/时间/描述/链接/poster, title key sometimes BOM-prefixed),
// and iresearch (title/id/keyword/abstract).
//
// Content precedence: content, abstract, 描述, description.
func DefaultSchema() Schema {
	return Schema{
		Title:        {"title", "标题", "\ufeff标题", "name"},
		Identifier:   {"_sha256", "file_sha256", "id", "sha256"},
		Author:       {"author", "作者"},
		Organization: {"organization", "机构"},
		Industry:     {"industry", "行业"},
		Tags:         {"tags", "标签", "keyword", "keywords"},
		PublishTime:  {"publish_time", "时间", "date"},
		SourceURL:    {"source", "url"},
		Poster:       {"poster"},
		Description:  {"描述", "description", "abstract"},
		Content:      {"content", "abstract", "描述", "description"},
		PDFLink:      {"pdf_link", "链接"},
		FileURL:      {"file_url"},
	}
}

// Extend returns a copy of s with extra keys prepended per field.
// Prepended keys win over the defaults; duplicates are dropped.
func (s Schema) Extend(extra map[Field][]string) Schema {
	out := make(Schema, len(s))
	for f, keys := range s {
		out[f] = slices.Clone(keys)
	}
	for f, keys := range extra {
		merged := slices.Clone(keys)
		for _, k := range out[f] {
			if !slices.Contains(merged, k) {
				merged = append(merged, k)
			}
		}
		out[f] = merged
	}
	return out
}
