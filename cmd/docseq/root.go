package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "docseq/internal/config"
)

// defaultConfigFile: 工作目录下存在时自动读取。
const defaultConfigFile = "docseq.yaml"

func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:   "docseq",
		Short: "Normalize document-understanding benchmarks into sequence-to-sequence instances",
		Long: `docseq reads a benchmark directory (train/dev/test document.jsonl plus
precomputed OCR) and turns every annotated property into a data instance:
an input prefix, the OCR document with its token layout and the expected output.

Supported dataset families:
  - qa     question answering (DocVQA, InfographicsVQA, WikiTableQuestions)
  - kv     key information extraction (DeepForm, Kleister)
  - table  leaderboard tables (PWC / AxCell)
  - nli    table entailment (TabFact)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (YAML/JSON; default: $"+cfgpkg.EnvPrefix+"_CONFIG_FILE or ./"+defaultConfigFile+" if present)")

	root.AddCommand(newRunCmd(&cfgFile))
	root.AddCommand(newConvertCmd())
	root.AddCommand(newInitConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// resolveConfigPath: --config > ENV > 工作目录默认文件。
func resolveConfigPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(cfgpkg.EnvPrefix + "_CONFIG_FILE")); p != "" {
		return p
	}
	if st, err := os.Stat(defaultConfigFile); err == nil && !st.IsDir() {
		return defaultConfigFile
	}
	return ""
}
