package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/engine"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/livesync"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/logger"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/ui"
)

func viewCmd(a *app) *cobra.Command {
	var (
		file      string
		direction string
		noMinimap bool
		noPanel   bool
	)

	cmd := &cobra.Command{
		Use:   "view [canvas-id]",
		Short: "Open a canvas as a live graph",
		Long: "Open a canvas from the server, or from a JSON file with --file.\n" +
			"The view follows changes as they happen. Without a canvas id you\n" +
			"pick one of the server's canvases.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal() {
				return fmt.Errorf("cv view needs a terminal; use cv export to render to a file")
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			src, err := a.resolveSource(ctx, args, file)
			if err != nil {
				return err
			}

			dir := a.cfg.LayoutDirection()
			if direction != "" {
				if dir, err = graph.ParseDirection(direction); err != nil {
					return err
				}
			}
			lo, err := a.cfg.LayoutOptions()
			if err != nil {
				return err
			}
			eo := engine.DefaultOptions()
			eo.Direction = dir
			eo.Layout = lo

			opts := ui.Options{
				ShowMinimap:  a.cfg.UI.ShowMinimap && !noMinimap,
				ShowControls: a.cfg.UI.ShowControls,
				ShowPanel:    a.cfg.UI.ShowPanel && !noPanel,
			}

			rec := livesync.New(src.fetcher, src.subscriber, livesync.WithDebounce(a.cfg.Debounce))
			defer rec.Close()

			m := ui.NewCanvasModel(nil, opts, ui.Deps{
				Sync:    rec,
				History: a.openHistory(),
				Engine:  eo,
				Source:  src.origin,
				Context: ctx,
			})

			go func() {
				if err := rec.Switch(ctx, src.canvasID); err != nil {
					logger.Error("Opening canvas", "canvas", src.canvasID, "source", src.origin, "error", err)
				}
			}()

			logger.Info("Starting canvas view", "canvas", src.canvasID, "source", src.origin)
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil && ctx.Err() == nil {
				return fmt.Errorf("running canvas view: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the canvas from a JSON file and watch it")
	cmd.Flags().StringVarP(&direction, "direction", "d", "", "Flow direction: TB or LR")
	cmd.Flags().BoolVar(&noMinimap, "no-minimap", false, "Hide the minimap")
	cmd.Flags().BoolVar(&noPanel, "no-panel", false, "Hide the side panel")
	return cmd
}
