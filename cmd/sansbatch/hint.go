package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/askiada/go-reduction/pkg/options"
	"github.com/askiada/go-reduction/pkg/selection"
)

func newHintCmd() *cobra.Command {
	var values string
	cmd := &cobra.Command{
		Use:   "hint",
		Short: "Print the override keys, or compress a selection with --values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if cmd.Flags().Changed("values") {
				parsed, err := selection.Parse(values, 0, selection.MaxSelection-1)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, selection.Hint(parsed))

				return nil
			}

			hints := options.Hints()
			keys := make([]string, 0, len(hints))
			for k := range hints {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%s\n", k, hints[k])
			}

			return nil
		},
	}
	cmd.Flags().StringVar(&values, "values", "", "selection to compress, e.g. 1,2,3,5")

	return cmd
}
