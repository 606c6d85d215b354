package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type SourcesCmd struct {
	env *Env
}

func NewSourcesCmd(env *Env) *cobra.Command {
	sc := &SourcesCmd{env: env}
	return &cobra.Command{
		Use:   "sources",
		Short: "List source profiles and local datasets",
		RunE:  sc.run,
	}
}

func (sc *SourcesCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	rt, err := sc.env.Open(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	kinds := make([]string, 0)
	for _, k := range rt.sources.Kinds() {
		kinds = append(kinds, string(k))
	}
	fmt.Fprintf(out, "Source kinds: %s\n", strings.Join(kinds, ", "))

	if rt.Profiles == nil {
		fmt.Fprintln(out, "No source profiles configured")
	} else {
		profiles, err := rt.Profiles.GetProfiles(ctx)
		if err != nil {
			return fmt.Errorf("failed to list profiles: %w", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleDefault)
		t.SetTitle("Profiles")
		t.AppendHeader(table.Row{"Name", "Type", "Settings"})
		for _, p := range profiles {
			t.AppendRow(table.Row{p.Name, p.Type, strings.Join(p.SettingNames(), ", ")})
		}
		t.Render()
	}

	ingester, err := rt.Ingester()
	if err != nil {
		return err
	}
	datasets, err := ingester.Datasets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}
	if len(datasets) == 0 {
		fmt.Fprintf(out, "No datasets in %s\n", rt.Settings.Database)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleDefault)
	t.SetTitle("Datasets in " + rt.Settings.Database)
	t.AppendHeader(table.Row{"Dataset", "Records", "Last Ingested"})
	for _, d := range datasets {
		last := "never"
		if d.LastIngestedAt != nil {
			last = d.LastIngestedAt.Format("2006-01-02 15:04:05")
		}
		t.AppendRow(table.Row{d.Dataset, d.RecordsCount, last})
	}
	t.Render()
	return nil
}
