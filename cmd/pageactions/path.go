package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pageactions/pkg/routepath"
)

func pathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <base-path> <action> [key]",
		Short: "Print the submission path of an action",
		Long: `Print the path an action submits to.

Examples:
  pageactions path /todos create
  pageactions path /todos toggle 3f2a`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := routepath.ValidateBasePath(args[0]); err != nil {
				return fmt.Errorf("base path %q: %w", args[0], err)
			}
			key := ""
			if len(args) == 3 {
				key = args[2]
			}
			fmt.Fprintln(cmd.OutOrStdout(), routepath.ActionPath(args[0], args[1], key))
			return nil
		},
	}
}
