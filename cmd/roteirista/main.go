package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"roteirista/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "roteirista",
	Short: "Gera e calibra roteiros de vídeo de produto",
	Long:  "Gera roteiros de vídeo a partir da ficha técnica com o LLM escolhido e aprende com as correções do diretor de criação.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
