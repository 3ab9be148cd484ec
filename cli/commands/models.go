package commands

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/providers"
)

type modelRow struct {
	Provider     string         `json:"provider"`
	Model        core.ModelID   `json:"model"`
	Name         string         `json:"name,omitempty"`
	Capabilities []core.Feature `json:"capabilities,omitempty"`
	Configured   bool           `json:"configured"`
}

func (a *App) newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models each provider serves",
		Long: `List the model catalog of every registered provider. Providers
without credentials are still listed but marked as not configured.`,
		Args: cobra.NoArgs,
		RunE: a.runModels,
	}
}

func (a *App) runModels(cmd *cobra.Command, args []string) error {
	creds := a.credentials()
	var rows []modelRow
	for _, name := range a.providerNames() {
		keys, err := creds.Keys(name)
		if err != nil {
			return err
		}
		// Catalogs are static, so a placeholder key is enough to list them.
		probe := keys
		if len(probe) == 0 {
			probe = []string{"unset"}
		}
		p, err := a.createProvider(name, providers.Settings{Keys: probe, Logger: a.log()})
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		for _, m := range p.Models() {
			rows = append(rows, modelRow{
				Provider:     name,
				Model:        m.ID,
				Name:         m.DisplayName,
				Capabilities: m.Capabilities,
				Configured:   len(keys) > 0,
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Provider < rows[j].Provider })

	if a.jsonOutput {
		if rows == nil {
			rows = []modelRow{}
		}
		return a.writeJSON(a.stdout, rows)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tMODEL\tFEATURES\tKEY")
	for _, r := range rows {
		features := make([]string, len(r.Capabilities))
		for i, c := range r.Capabilities {
			features[i] = string(c)
		}
		key := "missing"
		if r.Configured {
			key = "ok"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Provider, r.Model, strings.Join(features, ","), key)
	}
	return tw.Flush()
}
