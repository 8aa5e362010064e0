package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/dynexpr/pkg/dynexpr"
)

var evalArgs []string

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Parse and evaluate a standalone expression",
	Long: `Parse and evaluate a dynexpr expression with no host parameter in
scope, optionally substituting positional values for @0, @1, ... via
repeated --arg flags.

Each --arg is interpreted as an int64 if it parses as one, a float64
if it parses as a real number, true/false as a bool, or as a string
otherwise (with one pair of surrounding single quotes removed).`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringArrayVar(&evalArgs, "arg", nil, "positional substitution value for @0, @1, ...")
}

func runEval(cmd *cobra.Command, args []string) error {
	text := args[0]

	values := make([]any, len(evalArgs))
	for i, raw := range evalArgs {
		v, err := coerceArg(raw)
		if err != nil {
			exitWithError("invalid --arg %q: %v", raw, err)
		}
		values[i] = v
	}

	expr, err := dynexpr.Parse(nil, text, values...)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	result, err := expr.Eval(dynexpr.Bindings{})
	if err != nil {
		return fmt.Errorf("evaluation error: %w", err)
	}

	fmt.Printf("%v : %s\n", result, expr.Type())
	return nil
}

// coerceArg tries an integer form before a real form, matching the
// numeric-literal fallback order used for the command line's own
// untyped, unsuffixed --arg strings.
func coerceArg(raw string) (any, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty argument")
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, nil
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b, nil
	}
	if strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'") && len(raw) >= 2 {
		return raw[1 : len(raw)-1], nil
	}
	return raw, nil
}
