package main

import (
	"github.com/spf13/cobra"
)

func newVersionsCmd() *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "versions <file>",
		Short: "Show the version history of a reference file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(outputFmt); err != nil {
				return err
			}
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.Catalog.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printVersions(cmd.OutOrStdout(), outputFmt, items)
		},
	}

	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")
	return cmd
}

func newObjectsCmd() *cobra.Command {
	var (
		prefix    string
		outputFmt string
	)

	cmd := &cobra.Command{
		Use:   "objects",
		Short: "List stored objects",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(outputFmt); err != nil {
				return err
			}
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.Catalog.Objects(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			return printObjects(cmd.OutOrStdout(), outputFmt, items)
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix, e.g. raw/2025-09-17/")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")
	return cmd
}
