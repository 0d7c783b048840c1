package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"roteirista/internal/crawler"
)

var factsBaseURL string

var factsCmd = &cobra.Command{
	Use:   "fatos <codigo-ou-url>",
	Short: "Extrai e imprime a ficha técnica do produto",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := crawler.NewFetcher(factsBaseURL)
		facts, err := f.FetchFacts(cmd.Context(), args[0])
		fmt.Fprintln(cmd.OutOrStdout(), facts.Text)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d imagens\n", len(facts.Images))
		return nil
	},
}

func init() {
	factsCmd.Flags().StringVar(&factsBaseURL, "base-url", crawler.DefaultBaseURL, "URL base da loja")
	rootCmd.AddCommand(factsCmd)
}
