// Command evalctl runs one evaluation pass over a wire-encoded state
// document and prints the resulting shapes, or a non-zero exit with the
// captured error trace (§7: "cmd/evalctl is the only place that catches
// an error, to print it and set an exit code").
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xiarush120220/penrose/internal/ad"
	"github.com/xiarush120220/penrose/internal/config"
	"github.com/xiarush120220/penrose/internal/path"
	"github.com/xiarush120220/penrose/internal/wire"
)

func newRootCmd() *cobra.Command {
	cfg := config.Default()

	var (
		inputPath     string
		shapePaths    []string
		shapeOrdering []string
	)

	cmd := &cobra.Command{
		Use:   "evalctl",
		Short: "Run one evaluation pass over a wire-encoded evaluator state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.FromEnv()
			logger := cfg.Logger()

			data, err := os.ReadFile(inputPath)
			if err != nil {
				return err
			}

			tape := ad.NewTape()
			st, err := wire.Decode(data, tape)
			if err != nil {
				return err
			}

			paths := make([]path.Path, len(shapePaths))
			for i, s := range shapePaths {
				paths[i] = parseFieldFlag(s)
			}
			ordering := shapeOrdering
			if len(ordering) == 0 {
				ordering = make([]string, len(paths))
				for i, p := range paths {
					if fp, ok := p.(path.FieldPath); ok {
						ordering[i] = fp.Name
					}
				}
			}

			ev := newEvaluator(tape, logger, cfg.Fold)
			out, err := ev.EvalShapes(st, paths, ordering)
			if err != nil {
				return err
			}

			encoded, err := wire.Encode(out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "path to a wire-encoded JSON state document")
	cmd.Flags().StringSliceVar(&shapePaths, "shape", nil, "substance.field path of a shape to evaluate, repeatable")
	cmd.Flags().StringSliceVar(&shapeOrdering, "order", nil, "declared shape name ordering, defaults to --shape order")
	_ = cmd.MarkFlagRequired("input")
	cfg.BindFlags(cmd.Flags())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}
