package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"roteirista/internal/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "modelos",
	Short: "Lista os modelos disponíveis com preço e credencial",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := llm.NewResolver(cfg.Providers.Credentials(), cfg.Providers.BaseURLs, cfg.Providers.CallTimeout)
		available := map[llm.Provider]bool{}
		for _, p := range resolver.Available() {
			available[p] = true
		}
		costs := newAccountant(cfg.Pricing)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RÓTULO\tID\tENTRADA/1M\tSAÍDA/1M\tVISÃO\tCREDENCIAL")
		for _, e := range llm.Catalog() {
			spec := llm.Spec(costs, e.ID)
			cred := "-"
			if available[spec.Provider] {
				cred = "ok"
			}
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%t\t%s\n", e.Label, e.ID, spec.InputPerMillion, spec.OutputPerMillion, spec.Vision, cred)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
