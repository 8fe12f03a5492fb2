package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/vmscope/internal/config"
	"github.com/oakwood-commons/vmscope/internal/demo"
	"github.com/oakwood-commons/vmscope/internal/ui"
	"github.com/oakwood-commons/vmscope/internal/watch"
	"github.com/oakwood-commons/vmscope/pkg/devtools"
	"github.com/oakwood-commons/vmscope/pkg/loader"
	"github.com/oakwood-commons/vmscope/pkg/logger"
	"github.com/oakwood-commons/vmscope/pkg/settings"
)

type runFlags struct {
	watch    bool
	open     bool
	tick     time.Duration
	simulate time.Duration
	width    int
	height   int
}

func bindRunFlags(cmd *cobra.Command, f *runFlags) {
	fs := cmd.Flags()
	fs.BoolVar(&f.watch, "watch", false, "reload the --extras file when it changes")
	fs.BoolVar(&f.open, "open", false, "open the panel on start regardless of the saved state")
	fs.DurationVar(&f.tick, "tick", ui.DefaultTickInterval, "how often the panel re-reads property values")
	fs.DurationVar(&f.simulate, "simulate", time.Second, "demo store mutation interval (0 disables)")
	fs.IntVar(&f.width, "width", 0, "force the panel width in columns")
	fs.IntVar(&f.height, "height", 0, "force the panel height in rows")
}

func newRunCmd(f *runFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the interactive panel on the demo store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPanel(cmd, f)
		},
	}
	bindRunFlags(cmd, f)
	return cmd
}

func runPanel(cmd *cobra.Command, f *runFlags) error {
	params := paramsFrom(cmd)
	if f.watch && params.Sources.ExtrasPath == "" {
		return fmt.Errorf("--watch requires --extras")
	}
	params.Sources.WatchExtras = f.watch
	lgr := *logger.FromContext(cmd.Context())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	graph := demo.NewStore()
	bridge := ui.NewBridge()
	opts, err := panelOptions(params, lgr)
	if err != nil {
		return err
	}
	opts = append(opts, bridge.Options()...)
	panel := devtools.Connect(graph.Store, opts...)
	defer panel.Close()

	if f.open {
		panel.SetPopupOpened(true)
	}
	if f.simulate > 0 {
		go demo.Simulate(ctx, graph, f.simulate, nil)
	}
	if f.watch {
		w, err := watch.NewExtras(params.Sources.ExtrasPath, watch.DefaultDelay, lgr, func(extras map[string]any) {
			panel.SetExtras(extras)
		})
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		go w.Run(ctx)
	}

	lgr.V(1).Info("starting panel", "settings", params.Sources.SettingsPath, "extras", params.Sources.ExtrasPath)
	return ui.Run(ctx, panel, bridge, ui.RunOptions{
		AppName:      settings.CliBinaryName,
		NoColor:      params.NoColor,
		TickInterval: f.tick,
		Width:        f.width,
		Height:       f.height,
	})
}

// panelOptions loads the saved settings and extras for a panel. Changed
// settings are written back to the same file.
func panelOptions(params *settings.Run, lgr logr.Logger) ([]devtools.Option, error) {
	path := params.Sources.SettingsPath
	s, err := config.Load(path)
	if err != nil {
		lgr.Error(err, "loading settings, using defaults", "path", path)
	}
	opts := []devtools.Option{
		devtools.WithLogger(lgr),
		devtools.WithSettings(s),
		devtools.WithOnSettingsChange(func(s config.Settings) {
			if err := config.Save(path, s); err != nil {
				lgr.Error(err, "saving settings", "path", path)
			}
		}),
	}
	if p := params.Sources.ExtrasPath; p != "" {
		extras, err := loader.LoadExtras(p)
		if err != nil {
			return nil, err
		}
		opts = append(opts, devtools.WithExtras(extras))
	}
	return opts, nil
}
