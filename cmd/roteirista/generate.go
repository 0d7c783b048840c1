package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"roteirista/internal/crawler"
	"roteirista/internal/llm"
	"roteirista/internal/model"
	"roteirista/internal/roteiro"
)

var genOpts struct {
	factsFile     string
	model         string
	workMode      string
	month         string
	date          string
	productName   string
	subCodes      string
	supplierVideo string
}

var generateCmd = &cobra.Command{
	Use:   "gerar [codigo-ou-url]",
	Short: "Gera um roteiro a partir do código do produto ou de uma ficha em arquivo",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if len(args) == 0 && genOpts.factsFile == "" {
			return eris.New("informe um código de produto ou --ficha")
		}

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		req := roteiro.Request{
			WorkMode:      genOpts.workMode,
			Month:         genOpts.month,
			ProductName:   genOpts.productName,
			SubCodes:      genOpts.subCodes,
			SupplierVideo: genOpts.supplierVideo,
			ModelID:       llm.LookupLabel(genOpts.model),
		}
		if genOpts.date != "" {
			d, err := time.Parse("02/01/2006", genOpts.date)
			if err != nil {
				return eris.Wrap(err, "data deve estar no formato dd/mm/aaaa")
			}
			req.Date = d
		}

		switch {
		case genOpts.factsFile != "":
			raw, err := os.ReadFile(genOpts.factsFile)
			if err != nil {
				return eris.Wrapf(err, "ler ficha %s", genOpts.factsFile)
			}
			req.Facts = model.Facts{Text: strings.TrimSpace(string(raw))}
			if len(args) == 1 {
				req.ProductCode = crawler.NormalizeCode(args[0])
			}
		default:
			facts, err := env.Fetcher.FetchFacts(ctx, args[0])
			if err != nil {
				zap.L().Warn("ficha não extraída", zap.String("produto", args[0]), zap.Error(err))
			}
			req.Facts = facts
			req.ProductCode = crawler.NormalizeCode(args[0])
		}

		res, err := env.Generator.Generate(ctx, req)
		if err != nil {
			return err
		}
		env.Recorder.Record(ctx, req, res)

		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		fmt.Fprintf(cmd.ErrOrStderr(), "\nmodelo %s, tokens %d/%d, custo R$ %.4f\n", res.ModelID, res.TokensIn, res.TokensOut, res.Cost)
		return nil
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genOpts.factsFile, "ficha", "", "arquivo com a ficha técnica (dispensa a extração)")
	f.StringVar(&genOpts.model, "modelo", "", "id ou rótulo do modelo (padrão do config)")
	f.StringVar(&genOpts.workMode, "modo", "NW", "modo de trabalho: NW, SOCIAL, 3D, NW 3D")
	f.StringVar(&genOpts.month, "mes", "", "mês do cabeçalho (JAN..DEZ)")
	f.StringVar(&genOpts.date, "data", "", "data do cabeçalho em dd/mm/aaaa (padrão hoje)")
	f.StringVar(&genOpts.productName, "nome", "", "nome do produto para o cabeçalho")
	f.StringVar(&genOpts.subCodes, "sub-codigos", "", "códigos filhos")
	f.StringVar(&genOpts.supplierVideo, "video", "", "link do vídeo do fornecedor")
	rootCmd.AddCommand(generateCmd)
}
