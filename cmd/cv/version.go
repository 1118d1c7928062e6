package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/updater"
)

func versionCmd(a *app) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version, optionally checking for a newer release",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("cv " + version)
			if !check {
				return nil
			}
			rel, newer, err := updater.NewChecker().Check(cmd.Context(), version)
			if err != nil {
				return fmt.Errorf("checking for updates: %w", err)
			}
			if newer {
				fmt.Printf("%s is available: %s\n", idStyle.Render(rel.TagName), rel.HTMLURL)
			} else {
				fmt.Println(faintStyle.Render("Up to date."))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	return cmd
}
