package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/searchlens/internal/domain"
	"github.com/kailas-cloud/searchlens/internal/domain/search/outcome"
	"github.com/kailas-cloud/searchlens/internal/domain/search/query"
)

type searchFlags struct {
	knowledgeBase string
	topK          int
	ratio         float64
	asJSON        bool
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	sf := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run one enriched search and print the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ratio *float64
			if cmd.Flags().Changed("semantic-ratio") {
				ratio = &sf.ratio
			}
			return runSearch(cmd.Context(), cmd.OutOrStdout(), flags, sf, strings.Join(args, " "), ratio)
		},
	}
	cmd.Flags().StringVarP(&sf.knowledgeBase, "kb", "k", "", "knowledge base (default: search.default_knowledge_base)")
	cmd.Flags().IntVarP(&sf.topK, "top-k", "n", 0, "number of results (default: search.default_top_k)")
	cmd.Flags().Float64VarP(&sf.ratio, "semantic-ratio", "r", 0, "semantic weight in [0,1], 0 = keyword only")
	cmd.Flags().BoolVar(&sf.asJSON, "json", false, "print the outcome as JSON")
	return cmd
}

func runSearch(ctx context.Context, w io.Writer, flags *rootFlags, sf *searchFlags, text string, ratio *float64) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := buildApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.Close()

	q, err := a.cfg.QueryDefaults().Resolve(text, sf.knowledgeBase, sf.topK, ratio)
	if err != nil {
		return err
	}

	ctx, _ = domain.NewContextWithUsage(ctx)
	out := a.pipeline.Run(ctx, q)

	if sf.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode outcome: %w", err)
		}
	} else {
		renderOutcome(w, q, out)
	}

	if !out.Succeeded {
		return errors.New(out.ErrorMessage)
	}
	return nil
}

// renderOutcome prints results in the report layout: header, then one block per result.
func renderOutcome(w io.Writer, q query.Query, out outcome.Outcome) {
	fmt.Fprintf(w, "### 当前知识库：%s\n", q.KnowledgeBase())
	if !out.Succeeded {
		fmt.Fprintf(w, "搜索失败: %s\n", out.ErrorMessage)
		return
	}
	fmt.Fprintf(w, "### 搜索耗时：%.2f ms\n", out.ElapsedMillis)
	fmt.Fprintf(w, "### 返回结果数：%d 条\n\n", len(out.Results))

	if len(out.Results) == 0 {
		if !q.IsEmpty() {
			fmt.Fprintln(w, "未找到匹配结果，请尝试其他关键词")
		}
		return
	}

	for _, r := range out.Results {
		fmt.Fprintf(w, "### %d. %s\n", r.Rank, r.Title)
		fmt.Fprintf(w, "SHA256: %s\n", r.Identifier)
		fmt.Fprintf(w, "作者: %s\n", r.Author)
		fmt.Fprintf(w, "机构: %s\n", r.Organization)
		fmt.Fprintf(w, "行业: %s\n", r.Industry)
		if len(r.Tags) > 0 {
			fmt.Fprintf(w, "标签: %s\n", r.TagLine())
		}
		fmt.Fprintf(w, "发布时间: %s\n", r.PublishTime)
		fmt.Fprintf(w, "来源: %s\n", r.SourceURL)
		fmt.Fprintf(w, "摘要:\n%s\n", r.Summary)
		fmt.Fprintf(w, "关键词:\n%s\n", r.Keywords)
		if r.PDFLink != "" {
			fmt.Fprintf(w, "PDF链接: %s\n", r.PDFLink)
		}
		if r.FileURL != "" {
			fmt.Fprintf(w, "文件下载: %s\n", r.FileURL)
		}
		fmt.Fprintln(w, strings.Repeat("-", 40))
	}
}
