package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the canvas server is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			h, err := c.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s unreachable: %w", c.BaseURL(), err)
			}
			fmt.Printf("%s %s (%s)\n", idStyle.Render(c.BaseURL()), h.Status, h.ServerType)
			return nil
		},
	}
}
