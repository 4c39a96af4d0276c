package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/redpen"
	"pkt.systems/redpen/core"
	"pkt.systems/redpen/internal/appconfig"
	"pkt.systems/redpen/internal/eventbus"
	"pkt.systems/redpen/schema"
)

const editSurfaceID schema.SurfaceID = "editor"

func newEditCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Edit a text file with AI proofreading",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runEdit(cmd.Context(), cfgPath, path)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}

func runEdit(ctx context.Context, cfgPath, filePath string) error {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return err
	}
	logger := pslog.Ctx(ctx)
	source, err := appconfig.NewSource(cfg, logger)
	if err != nil {
		return err
	}

	doc := newDocBuffer(filePath)
	if err := doc.Load(); err != nil {
		return fmt.Errorf("load %s: %w", filePath, err)
	}
	ui := newEditorUI()
	disp := newTeaDispatcher()
	defer disp.Close()

	plug, err := redpen.New(
		redpen.PluginConfig{
			Service: cfg.ServiceConfig(),
			OpenAI: redpen.OpenAIConfig{
				BaseURL:       cfg.OpenAI.BaseURL,
				ModelCacheTTL: cfg.ModelCacheTTL(),
			},
		},
		redpen.PluginDeps{ServiceDeps: core.ServiceDeps{
			Config:     source,
			Host:       &editorHost{doc: doc, ui: ui},
			Dispatcher: disp,
			Logger:     logger,
		}},
		redpen.WithEventBus(),
		redpen.WithModelRefresh(),
	)
	if err != nil {
		return err
	}
	defer func() { _ = plug.Close() }()

	events, cancelSub := plug.Events().Subscribe(eventbus.AllSurfaces)
	defer cancelSub()

	start := func(ctx context.Context) error {
		if _, err := plug.Service().AttachSurface(ctx, schema.AttachSurfaceRequest{Surface: editSurfaceID}); err != nil {
			return err
		}
		return plug.Start(ctx)
	}

	m := newEditModel(ctx, editModelConfig{
		Surface:  editSurfaceID,
		Service:  plug.Service(),
		Commands: plug.Commands(),
		Events:   events,
		Start:    start,
		Doc:      doc,
		UI:       ui,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	go disp.Run(p)
	if _, err := p.Run(); err != nil {
		return err
	}
	_, _ = plug.Service().DetachSurface(context.Background(), schema.DetachSurfaceRequest{Surface: editSurfaceID})
	return nil
}
