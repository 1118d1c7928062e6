package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/session"
)

func recentCmd(a *app) *cobra.Command {
	var (
		limit  int
		forget string
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recently viewed canvases",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h := a.openHistory()
			if h == nil {
				return fmt.Errorf("view history unavailable at %s", a.cfg.DBPath)
			}

			if forget != "" {
				if err := h.Forget(ctx, forget); err != nil {
					return fmt.Errorf("forget %s: %w", forget, err)
				}
				fmt.Println(faintStyle.Render("Forgot " + forget))
				return nil
			}

			visits, err := h.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(visits) == 0 {
				fmt.Println(faintStyle.Render("No canvases viewed yet."))
				return nil
			}

			fmt.Println(headStyle.Render(fmt.Sprintf("%-38s %5s  %-4s  %-10s  %s", "CANVAS", "OPENS", "FLOW", "LAST", "TITLE")))
			for _, v := range visits {
				dir := string(v.Direction)
				if dir == "" {
					dir = "-"
				}
				fmt.Printf("%s %5d  %-4s  %-10s  %s\n",
					idStyle.Render(fmt.Sprintf("%-38s", v.CanvasID)),
					v.OpenCount,
					dir,
					ago(time.Since(v.OpenedAt)),
					v.Title)
				fmt.Println("  " + faintStyle.Render(v.Source))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", session.DefaultRecentLimit, "How many canvases to show")
	cmd.Flags().StringVar(&forget, "forget", "", "Remove a canvas from the history")
	return cmd
}

// ago formats a duration the way a human would say it
func ago(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
