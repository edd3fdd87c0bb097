package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newVerifyCommand() *cobra.Command {
	var user string
	var ids []string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Report which transaction ids still exist for a user",
		Long: "Checks whether a compensation left rows behind. Prints every id that\n" +
			"is still stored and exits non-zero when any remain.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("user", user); err != nil {
				return err
			}
			ids = compact(ids)
			if len(ids) == 0 {
				return fmt.Errorf("--ids needs at least one id")
			}

			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			be, closeBackend, err := rt.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer closeBackend()

			remaining, err := be.Store.FindTransactions(cmd.Context(), user, ids)
			if err != nil {
				return fmt.Errorf("finding transactions: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, r := range remaining {
				fmt.Fprintln(out, r.ID)
			}
			fmt.Fprintf(out, "%d of %d ids still present\n", len(remaining), len(ids))
			if len(remaining) > 0 {
				return fmt.Errorf("%d transactions remain", len(remaining))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "owner of the rows (required)")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "comma-separated transaction ids (required)")

	return cmd
}

func compact(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
