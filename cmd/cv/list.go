package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/ui"
)

var (
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(ui.ColorPrimary)
	idStyle    = lipgloss.NewStyle().Foreground(ui.ColorInfo)
	faintStyle = lipgloss.NewStyle().Foreground(ui.ColorMuted)
)

func listCmd(a *app) *cobra.Command {
	var (
		pick   bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the canvases on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.newClient()
			if err != nil {
				return err
			}

			if pick {
				id, err := pickCanvas(ctx, c)
				if err != nil {
					return err
				}
				if err := a.logToFile(); err != nil {
					return err
				}
				view := viewCmd(a)
				view.SetContext(ctx)
				return view.RunE(view, []string{id})
			}

			list, err := c.ListCanvases(ctx)
			if err != nil {
				return fmt.Errorf("list canvases: %w", err)
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			if len(list) == 0 {
				fmt.Println(faintStyle.Render("No canvases on " + c.BaseURL()))
				return nil
			}

			fmt.Println(headStyle.Render(fmt.Sprintf("%-38s %6s  %-16s  %s", "CANVAS", "NODES", "CREATED", "TITLE")))
			for _, s := range list {
				created := time.Unix(int64(s.CreatedAt), 0).Format("2006-01-02 15:04")
				fmt.Printf("%s %6d  %s  %s\n",
					idStyle.Render(fmt.Sprintf("%-38s", s.CanvasID)),
					s.NodeCount,
					faintStyle.Render(created),
					summaryTitle(s))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&pick, "pick", "p", false, "Pick a canvas and open it")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the list as JSON")
	return cmd
}
