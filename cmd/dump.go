package cmd

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/vmscope/internal/config"
	"github.com/oakwood-commons/vmscope/internal/demo"
	"github.com/oakwood-commons/vmscope/internal/limiter"
	"github.com/oakwood-commons/vmscope/pkg/devtools"
	"github.com/oakwood-commons/vmscope/pkg/loader"
	"github.com/oakwood-commons/vmscope/pkg/logger"
)

type dumpFlags struct {
	search    string
	mode      string
	sort      string
	format    string
	expandAll bool
	expand    []string
	collapse  []string
	ticks     int
	limit     int
	offset    int
	tail      int
	treeDepth int
	maxString int
	noValues  bool
}

func newDumpCmd() *cobra.Command {
	f := &dumpFlags{}
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the rows of the demo store once",
		Long: "dump projects the demo store exactly as the panel would and prints the visible rows.\n" +
			"Expand state starts from the panel defaults: instances open, properties closed.",
		Example: "\n  vmscope dump --search CounterVM.count\n  vmscope dump --expand-all --format yaml\n  vmscope dump --mode list --sort asc --limit 10\n",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDump(cmd, f)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.search, "search", "", "search query (Name.prop.sub)")
	fs.StringVar(&f.mode, "mode", "", "presentation mode: tree|list (default from settings)")
	fs.StringVar(&f.sort, "sort", "", "property order: none|asc|desc (default from settings)")
	fs.StringVarP(&f.format, "format", "o", formatTree, "output format: "+formatList())
	fs.BoolVar(&f.expandAll, "expand-all", false, "expand every instance")
	fs.StringArrayVar(&f.expand, "expand", nil, "expand the node with this key (repeatable)")
	fs.StringArrayVar(&f.collapse, "collapse", nil, "collapse the node with this key (repeatable)")
	fs.IntVar(&f.ticks, "ticks", 0, "advance the demo store this many steps first")
	fs.IntVar(&f.limit, "limit", 0, "print at most this many rows")
	fs.IntVar(&f.offset, "offset", 0, "skip the first N rows")
	fs.IntVar(&f.tail, "tail", 0, "print the last N rows (mutually exclusive with --limit; ignores --offset)")
	fs.IntVar(&f.treeDepth, "tree-depth", 0, "limit tree depth (0 = unlimited)")
	fs.IntVar(&f.maxString, "max-string", 0, "truncate values longer than this (0 = unlimited)")
	fs.BoolVar(&f.noValues, "no-values", false, "show structure only (hide values) in tree output")
	return cmd
}

func runDump(cmd *cobra.Command, f *dumpFlags) error {
	window := limiter.Config{Limit: f.limit, Offset: f.offset, Tail: f.tail}
	if err := window.Validate(); err != nil {
		return err
	}
	if !validFormat(f.format) {
		return fmt.Errorf("unknown --format %q (want %s)", f.format, formatList())
	}

	params := paramsFrom(cmd)
	lgr := *logger.FromContext(cmd.Context())

	s, err := config.Load(params.Sources.SettingsPath)
	if err != nil {
		lgr.Error(err, "loading settings, using defaults", "path", params.Sources.SettingsPath)
	}
	if f.mode != "" {
		if f.mode != string(devtools.ModeTree) && f.mode != string(devtools.ModeList) {
			return fmt.Errorf("unknown --mode %q (want tree or list)", f.mode)
		}
		s.PresentationMode = f.mode
	}
	if f.sort != "" {
		switch devtools.SortOrder(f.sort) {
		case devtools.SortNone, devtools.SortAsc, devtools.SortDesc:
		default:
			return fmt.Errorf("unknown --sort %q (want none, asc or desc)", f.sort)
		}
		s.SortOrder = f.sort
	}

	graph := demo.NewStore()
	for i := 0; i < f.ticks; i++ {
		graph.Tick()
	}

	opts := []devtools.Option{
		devtools.WithLogger(lgr),
		devtools.WithSettings(s),
		devtools.WithSearchDebounce(0),
		devtools.WithAutoScrollDelay(0),
	}
	if p := params.Sources.ExtrasPath; p != "" {
		extras, err := loader.LoadExtras(p)
		if err != nil {
			return err
		}
		opts = append(opts, devtools.WithExtras(extras))
	}
	panel := devtools.Connect(graph.Store, opts...)
	defer panel.Close()

	applyExpandState(panel, f, lgr)
	if f.search != "" {
		panel.ApplySearchText(f.search)
	}

	rows, total, err := panel.Window(window)
	if err != nil {
		return err
	}
	lgr.V(1).Info("dump", logger.QueryKey, f.search, "rows", len(rows), "total", total)

	out, err := renderRows(rows, renderOptions{
		Format:       f.format,
		Title:        "vmscope",
		NoColor:      params.NoColor,
		MarkFitted:   f.search != "",
		TreeDepth:    f.treeDepth,
		MaxStringLen: f.maxString,
		NoValues:     f.noValues,
	})
	if err != nil {
		return err
	}
	return writeString(cmd.OutOrStdout(), out)
}

func applyExpandState(panel *devtools.Panel, f *dumpFlags, lgr logr.Logger) {
	if f.expandAll {
		panel.ExpandAll()
	}
	for _, key := range f.expand {
		if !panel.Expand(key) {
			lgr.Info("no such node to expand", logger.NodeKeyKey, key)
		}
	}
	for _, key := range f.collapse {
		if !panel.Collapse(key) {
			lgr.Info("no such node to collapse", logger.NodeKeyKey, key)
		}
	}
}
