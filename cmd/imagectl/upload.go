package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dunamismax/pixelflow-edge/internal/config"
	"github.com/dunamismax/pixelflow-edge/internal/storage"
)

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file> <key>",
		Short: "Put an original image into the local object store used by the api",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			store, err := storage.NewClient(storage.Config{
				Endpoint: cfg.Storage.Endpoint,
				Access:   cfg.Storage.AccessKey,
				Secret:   cfg.Storage.SecretKey,
				Bucket:   cfg.Storage.Bucket,
				UseSSL:   cfg.Storage.UseSSL,
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := store.EnsureBucket(ctx); err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			contentType := mime.TypeByExtension(filepath.Ext(args[0]))
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			if err := store.WriteObject(ctx, args[1], data, contentType); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s to %s/%s\n", args[0], store.Bucket(), args[1])
			return nil
		},
	}
}
