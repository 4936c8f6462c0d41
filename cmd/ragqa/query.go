package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"ragqa/internal/domain"
	"ragqa/internal/service"
	"ragqa/internal/summarizer"
)

var (
	queryCollection string
	queryTopK       int
	queryJSON       bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question against one collection, all collections, or global knowledge",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List valid query targets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range append(slices.Clone(appCfg.Collections), domain.GlobalCollection) {
			cmd.Println(name)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVarP(&queryCollection, "collection", "c", "", "collection to search; empty searches all, \"global\" skips retrieval")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", service.DefaultTopK, "number of chunks to retrieve")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(queryCmd, collectionsCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appCfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ans, err := a.svc.Query(cmd.Context(), service.QueryRequest{
		Query:      strings.Join(args, " "),
		Collection: queryCollection,
		TopK:       queryTopK,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(ans, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printAnswer(cmd, ans, summarizer.NewFrequencySummarizer())
	return nil
}

func printAnswer(cmd *cobra.Command, ans service.Answer, sum domain.Summarizer) {
	cmd.Println(ans.Answer)
	if len(ans.Sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, src := range ans.Sources {
		cmd.Printf("  [%d] %s (%.3f)", i+1, src.Collection, src.Score)
		if name, ok := src.Metadata["filename"].(string); ok && name != "" {
			cmd.Printf(" %s", name)
		}
		cmd.Println()
		if gist, err := sum.Summarize(src.Text, 1); err == nil && gist != "" {
			cmd.Printf("      %s\n", gist)
		}
	}
}
