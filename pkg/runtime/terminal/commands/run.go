package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/de-tools/report-atlas/pkg/report"
	"github.com/de-tools/report-atlas/pkg/runtime/terminal/export"
)

type RunCmd struct {
	env            *Env
	reporter       *export.Reporter
	definition     string
	groupers       []string
	measures       []string
	parentGroupers []string
	sort           map[string]string
	filters        []string
	total          bool
	format         string
}

func NewRunCmd(env *Env, reporter *export.Reporter) *cobra.Command {
	rc := &RunCmd{env: env, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build a report from a definition's configured source",
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.definition, "definition", "", "Name of the report definition")
	cmd.Flags().StringSliceVar(&rc.groupers, "group", nil, "Dimensions to group by, overriding the definition")
	cmd.Flags().StringSliceVar(&rc.measures, "measure", nil, "Measures to compute, overriding the definition")
	cmd.Flags().StringSliceVar(&rc.parentGroupers, "parent-groupers", nil,
		"Build a parent report over these dimensions and link it for ratio calculators")
	cmd.Flags().StringToStringVar(&rc.sort, "sort", nil, "Sort directions, e.g. month=desc")
	cmd.Flags().StringArrayVar(&rc.filters, "filter", nil, "Keep only rows where dimension=value")
	cmd.Flags().BoolVar(&rc.total, "total", false, "Also print the total report")
	cmd.Flags().StringVar(&rc.format, "format", "table", "Output format: table or json")

	_ = cmd.MarkFlagRequired("definition")

	return cmd
}

func (rc *RunCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if rc.format != "table" && rc.format != "json" {
		return fmt.Errorf("unsupported format %q", rc.format)
	}

	params, err := rc.params()
	if err != nil {
		return err
	}

	rt, err := rc.env.Open(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	r, err := rc.build(ctx, rt, params)
	if err != nil {
		return fmt.Errorf("failed to build report %s: %w", rc.definition, err)
	}

	rows, err := r.FlatData(ctx)
	if err != nil {
		return err
	}
	if err := rc.print(export.Table{Title: rc.definition, Columns: r.Columns(), Rows: rows}); err != nil {
		return err
	}

	if !rc.total {
		return nil
	}
	totals, err := r.TotalData(ctx)
	if err != nil {
		return err
	}
	totalRows := make([]map[string]any, len(totals))
	for i, row := range totals {
		totalRows[i] = row.Flat()
	}
	return rc.print(export.Table{
		Title:   rc.definition + " (total)",
		Columns: r.Columns()[len(r.GrouperNames()):],
		Rows:    totalRows,
	})
}

// build runs the definition once; a parent report, when requested, reuses the
// child's records.
func (rc *RunCmd) build(ctx context.Context, rt *Runtime, params map[string]any) (*report.Report, error) {
	if len(rc.parentGroupers) == 0 {
		return rt.Service.Run(ctx, rc.definition, params)
	}

	parentParams := map[string]any{"groupers": rc.parentGroupers}
	if len(rc.measures) > 0 {
		parentParams["measures"] = rc.measures
	}
	parent, err := rt.Service.Run(ctx, rc.definition, parentParams)
	if err != nil {
		return nil, fmt.Errorf("parent report: %w", err)
	}

	params["raw_data"] = parent.RawData()
	params["parent_report"] = parent
	params["parent_groupers"] = rc.parentGroupers
	return rt.Service.Build(ctx, rc.definition, params)
}

func (rc *RunCmd) params() (map[string]any, error) {
	params := make(map[string]any)
	if len(rc.groupers) > 0 {
		params["groupers"] = rc.groupers
	}
	if len(rc.measures) > 0 {
		params["measures"] = rc.measures
	}
	if len(rc.sort) > 0 {
		params["sort"] = rc.sort
	}
	if len(rc.filters) > 0 {
		filters := make(map[string][]string)
		for _, f := range rc.filters {
			dim, value, ok := strings.Cut(f, "=")
			if !ok || dim == "" {
				return nil, fmt.Errorf("invalid filter %q, expected dimension=value", f)
			}
			filters[dim] = append(filters[dim], value)
		}
		params["filters"] = filters
	}
	return params, nil
}

func (rc *RunCmd) print(table export.Table) error {
	if rc.format == "json" {
		return rc.reporter.HandleJSON(table)
	}
	return rc.reporter.Handle(table)
}
