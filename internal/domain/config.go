package domain

// KeyPrefix namespaces every key searchlens writes to the cache store.
const KeyPrefix = "searchlens:"

// Placeholders rendered in place of missing values.
const (
	// NoValue stands in for an absent optional field.
	NoValue = "无"
	// NoTitle stands in for an absent title.
	NoTitle = "无标题"
	// NoContent is the summary of a result with no content to enrich.
	NoContent = "无内容"
	// NoKeywords is the keyword line of a result with no content to enrich.
	NoKeywords = "无关键词"
)
