package commands

import (
	"github.com/spf13/cobra"

	"github.com/slightlyfaulty/wctx/internal/query"
	"github.com/slightlyfaulty/wctx/internal/types"
)

var queryCmd = &cobra.Command{
	Use:    "query [context] [property]",
	Short:  "Query the current window context",
	Hidden: true,
	Args:   cobra.MaximumNArgs(2),
	RunE:   runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	addQueryFlags(queryCmd)
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", string(query.FormatFlat), "output format (flat, dict, json, toml, csv)")
	cmd.Flags().BoolP("watch", "w", false, "monitor and output window changes")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	ctx, err := types.ParseContext(args[0])
	if err != nil {
		return err
	}

	property := ""
	if len(args) > 1 {
		property = args[1]
		if _, err := (types.Window{}).Prop(property); err != nil {
			return err
		}
	}

	formatFlag, _ := cmd.Flags().GetString("format")
	format, err := query.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	watch, _ := cmd.Flags().GetBool("watch")

	cmd.SilenceUsage = true

	return query.Run(query.Args{
		Context:  ctx,
		Property: property,
		Format:   format,
		Watch:    watch,
	})
}
