package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stratabase/borecore/internal/blob"
	"github.com/stratabase/borecore/internal/directory"
)

func initBlob(ctx context.Context) (blob.Store, error) {
	return blob.Open(ctx, cfg.Blob)
}

func initDirectory(ctx context.Context) (directory.Directory, error) {
	return directory.Open(ctx, cfg.Directory)
}

// emit writes v to w in the format the --format flag selects.
func emit(cmd *cobra.Command, w io.Writer, v any) error {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(v)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func emitStdout(cmd *cobra.Command, v any) error {
	return emit(cmd, os.Stdout, v)
}
