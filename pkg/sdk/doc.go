// Package searchlens embeds the enriched search pipeline in a Go program.
//
// The caller supplies the query embedder and the text generator; the client
// runs the hybrid Meilisearch query, normalizes hits across knowledge-base
// layouts, and adds a generated summary and keyword line to every result.
//
//	client, err := searchlens.New(ctx,
//	    searchlens.WithMeilisearch("http://localhost:7700", key),
//	    searchlens.WithEmbedder(myEmbedder),
//	    searchlens.WithGenerator(myGenerator),
//	    searchlens.WithKnowledgeBase("broker_reports", nil),
//	)
//	defer client.Close()
//
//	resp, err := client.Search(ctx, "AI 芯片", searchlens.TopK(5), searchlens.SemanticRatio(0.8))
//	for _, r := range resp.Results {
//	    fmt.Println(r.Rank, r.Title, r.Summary)
//	}
package searchlens
