package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ragqa/internal/service"
)

var (
	ingestCollection string
	ingestFile       string
	ingestText       string
	ingestMeta       []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a single document into a collection",
	Args:  cobra.NoArgs,
	RunE:  runIngest,
}

var ingestFolderCmd = &cobra.Command{
	Use:   "ingest-folder ARCHIVE.zip",
	Short: "Ingest every supported file of a zipped folder into a collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestFolder,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "", "target collection")
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "file to ingest")
	ingestCmd.Flags().StringVarP(&ingestText, "text", "t", "", "literal text to ingest")
	ingestCmd.Flags().StringArrayVar(&ingestMeta, "meta", nil, "metadata entry key=value (repeatable)")
	ingestCmd.MarkFlagsMutuallyExclusive("file", "text")
	_ = ingestCmd.MarkFlagRequired("collection")

	ingestFolderCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "", "target collection")
	ingestFolderCmd.Flags().StringArrayVar(&ingestMeta, "meta", nil, "metadata entry key=value (repeatable)")
	_ = ingestFolderCmd.MarkFlagRequired("collection")

	rootCmd.AddCommand(ingestCmd, ingestFolderCmd)
}

// parseMeta turns key=value pairs into a metadata map.
func parseMeta(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --meta %q: want key=value", p)
		}
		meta[k] = v
	}
	return meta, nil
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if ingestFile == "" && ingestText == "" {
		return errors.New("one of --file or --text is required")
	}
	meta, err := parseMeta(ingestMeta)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), appCfg)
	if err != nil {
		return err
	}
	defer a.Close()

	req := service.IngestRequest{Collection: ingestCollection, Text: ingestText, Metadata: meta}
	if ingestFile != "" {
		f, err := os.Open(ingestFile)
		if err != nil {
			return err
		}
		defer f.Close()
		req.File = f
		req.Filename = filepath.Base(ingestFile)
	}

	res, err := a.svc.IngestText(cmd.Context(), req)
	if err != nil {
		return err
	}
	cmd.Printf("Ingested %d chunks into %s\n", res.ChunksProcessed, ingestCollection)
	return nil
}

func runIngestFolder(cmd *cobra.Command, args []string) error {
	meta, err := parseMeta(ingestMeta)
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	a, err := newApp(cmd.Context(), appCfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.IngestFolder(cmd.Context(), ingestCollection, f, meta)
	if err != nil {
		return err
	}
	cmd.Printf("Processed %d files (%d chunks), %d failed, %d skipped as binary\n",
		res.FilesProcessed, res.TotalChunks, res.FailedFiles, res.SkippedBinaryFiles)
	tree, err := json.MarshalIndent(res.FolderStructure, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(tree))
	return nil
}
