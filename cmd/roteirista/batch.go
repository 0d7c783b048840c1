package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"roteirista/internal/batch"
	"roteirista/internal/crawler"
	"roteirista/internal/llm"
	"roteirista/internal/roteiro"
)

var batchOpts struct {
	codesFile string
	model     string
	workMode  string
	month     string
}

var batchCmd = &cobra.Command{
	Use:   "lote [codigos...]",
	Short: "Gera roteiros para vários códigos em sequência",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		raw := strings.Join(args, " ")
		if batchOpts.codesFile != "" {
			b, err := os.ReadFile(batchOpts.codesFile)
			if err != nil {
				return eris.Wrapf(err, "ler códigos %s", batchOpts.codesFile)
			}
			raw += " " + string(b)
		}
		codes := crawler.ParseCodes(raw)
		if len(codes) == 0 {
			return eris.New("informe ao menos um código")
		}

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		out := cmd.OutOrStdout()
		env.Runner.OnItem = func(it batch.Item) {
			fmt.Fprintf(out, "=== %s [%s] ===\n", it.Code, it.Status)
			switch {
			case it.Err != nil:
				fmt.Fprintln(out, it.ErrorMsg)
			case it.Result != nil:
				fmt.Fprintln(out, it.Result.Text)
			}
			fmt.Fprintln(out)
		}

		items := env.Runner.Run(ctx, codes, roteiro.Request{
			WorkMode: batchOpts.workMode,
			Month:    batchOpts.month,
			ModelID:  llm.LookupLabel(batchOpts.model),
		})

		var ok int
		for _, it := range items {
			if it.Status == batch.StatusOK {
				ok++
			}
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d de %d roteiros gerados\n", ok, len(codes))
		return ctx.Err()
	},
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchOpts.codesFile, "arquivo", "", "arquivo com códigos separados por vírgula, espaço ou linha")
	f.StringVar(&batchOpts.model, "modelo", "", "id ou rótulo do modelo (padrão do config)")
	f.StringVar(&batchOpts.workMode, "modo", "NW", "modo de trabalho")
	f.StringVar(&batchOpts.month, "mes", "", "mês do cabeçalho")
	rootCmd.AddCommand(batchCmd)
}
