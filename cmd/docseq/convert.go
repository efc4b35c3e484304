package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"docseq/internal/convert"
	"docseq/pkg/contract"
	"docseq/pkg/strategy"
	rjsonl "docseq/plugins/reader/jsonl"
	wfs "docseq/plugins/writer/filesystem"
)

func newConvertCmd() *cobra.Command {
	var (
		predictions string
		reference   string
		out         string
		sep         string
	)
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert model predictions back into document.jsonl annotations",
		Long: `Group model predictions ({"doc_id", "label_name", "preds"} per line) by document
and write them in the order of the reference document.jsonl, one document per line,
so the result can be compared with the reference directly.

Example:
  docseq convert --predictions test-generation.jsonl \
      --reference bench/docvqa/test/document.jsonl --out predictions/document.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(predictions) == "" || strings.TrimSpace(reference) == "" || strings.TrimSpace(out) == "" {
				return fail(exitConfig, "参数缺失", fmt.Errorf("--predictions, --reference and --out are required: %w", contract.ErrConfiguration))
			}
			var buf bytes.Buffer
			st, err := convert.Convert(cmd.Context(), predictions, rjsonl.New(nil), reference, &buf, convert.Options{ValuesSeparator: sep})
			if err != nil {
				return fail(exitRun, "转换失败", err)
			}
			w, err := wfs.New(&wfs.Options{OutputDir: filepath.Dir(out)})
			if err != nil {
				return fail(exitConfig, "输出不可用", err)
			}
			if err := w.Write(cmd.Context(), contract.ArtifactID(filepath.Base(out)), &buf); err != nil {
				return fail(exitRun, "写出失败", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "documents=%d annotations=%d predictions=%d duplicates=%d -> %s\n",
				st.Documents, st.Annotations, st.Predictions, st.Duplicates, out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&predictions, "predictions", "", "model predictions (JSONL)")
	f.StringVar(&reference, "reference", "", "reference document.jsonl (defines document order)")
	f.StringVar(&out, "out", "", "output path")
	f.StringVar(&sep, "values-separator", strategy.DefaultValuesSeparator, "separator between predicted values")
	return cmd
}
