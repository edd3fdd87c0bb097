package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"finanzas/internal/cli"
	"finanzas/internal/core"
	"finanzas/internal/services"
)

type ingestOptions struct {
	file      string
	user      string
	account   string
	currency  string
	category  string
	chunkSize int
}

func newIngestCommand() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Import a CSV statement for a user straight into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "CSV file to import (required)")
	cmd.Flags().StringVar(&opts.user, "user", "", "owner of the imported rows (required)")
	cmd.Flags().StringVar(&opts.account, "account", "", "bank account id")
	cmd.Flags().StringVar(&opts.currency, "currency", "", "currency code")
	cmd.Flags().StringVar(&opts.category, "category", "", "category id")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", 0, "rows per insert (default INGEST_CHUNK_SIZE)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runIngest(cmd *cobra.Command, opts ingestOptions) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.file, err)
	}

	ctx := cmd.Context()
	be, closeBackend, err := rt.openBackend(ctx)
	if err != nil {
		return err
	}
	defer closeBackend()

	ic := cli.IngestionConfig(rt.cfg)
	if opts.chunkSize > 0 {
		ic.ChunkSize = opts.chunkSize
	}
	var publisher services.CompensationPublisher
	if be.AMQP != nil {
		publisher = be.AMQP
	}
	processor := services.NewIngestionProcessor(be.Store, publisher, ic)

	result, procErr := processor.Process(ctx, opts.user, core.UploadRequest{
		File:          data,
		FileName:      filepath.Base(opts.file),
		BankAccountID: opts.account,
		CurrencyCode:  opts.currency,
		CategoryID:    opts.category,
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return procErr
}
