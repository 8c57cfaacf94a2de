package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/polcheck/polcheck/pkg/parser"
)

func newDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported policy dialects",
		RunE: func(cmd *cobra.Command, args []string) error {
			dialects := parser.Dialects()

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(dialects)
			}

			for _, d := range dialects {
				fmt.Fprintln(os.Stdout, d)
			}
			return nil
		},
	}
}
