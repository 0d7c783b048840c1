package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"roteirista/internal/calibration"
)

var calOpts struct {
	original string
	approved string
	code     string
	title    string
	workMode string
	asJSON   bool
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrar",
	Short: "Compara o roteiro da IA com o aprovado e grava as lições",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		original, err := os.ReadFile(calOpts.original)
		if err != nil {
			return eris.Wrap(err, "ler roteiro original")
		}
		approved, err := os.ReadFile(calOpts.approved)
		if err != nil {
			return eris.Wrap(err, "ler roteiro aprovado")
		}

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		out := env.Engine.Calibrate(ctx, calibration.Input{
			OriginalText:  string(original),
			ApprovedText:  string(approved),
			Categories:    env.Store.Categories(ctx),
			SuggestedCode: calOpts.code,
			ProductTitle:  calOpts.title,
			WorkMode:      calOpts.workMode,
		})

		if calOpts.asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.Summary())
		if out.Result.Lesson != "" {
			fmt.Fprintln(cmd.OutOrStdout(), out.Result.Lesson)
		}
		for _, v := range out.Result.VisualRules {
			fmt.Fprintln(cmd.OutOrStdout(), "visual:", v)
		}
		return nil
	},
}

func init() {
	f := calibrateCmd.Flags()
	f.StringVar(&calOpts.original, "original", "", "arquivo com o roteiro gerado pela IA")
	f.StringVar(&calOpts.approved, "aprovado", "", "arquivo com o roteiro aprovado")
	f.StringVar(&calOpts.code, "codigo", "", "código do produto sugerido")
	f.StringVar(&calOpts.title, "titulo", "", "título do produto")
	f.StringVar(&calOpts.workMode, "modo", "NW", "modo de trabalho (define a família de tabelas)")
	f.BoolVar(&calOpts.asJSON, "json", false, "imprime o resultado completo em JSON")
	_ = calibrateCmd.MarkFlagRequired("original")
	_ = calibrateCmd.MarkFlagRequired("aprovado")
	rootCmd.AddCommand(calibrateCmd)
}
