package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/actorlab/qdb/internal/engine"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// CompileResult is the JSON payload for a compilation.
type CompileResult struct {
	Source    string `json:"source"`
	CodeBytes int    `json:"code_bytes"`
	CodeHex   string `json:"code_hex,omitempty"`
	Output    string `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <source>",
		Short: "Compile actor source with the configured external compiler",
		Long: `Run the configured external compiler on an actor source file and
report the produced code. With --output, the code is written to a file
ready to splice into a state snapshot's code field.

The compiler command comes from the config file.

Example:
  qdb compile wallet.src
  qdb compile wallet.src -o wallet.code`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompileSource(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write compiled code to file (hex)")
	return cmd
}

func runCompileSource(opts *CompileOptions, sourcePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := LoadConfig(opts.Config, true)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if len(cfg.Compiler) == 0 {
		return NewExitError(ExitCommandError, "no compiler configured (set compiler in the config file)")
	}

	compiler, err := engine.NewSubprocessCompiler(cfg.Compiler)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build compiler", err)
	}

	formatter.VerboseLog("compiling %s with %v", sourcePath, cfg.Compiler)

	code, err := compiler.Compile(context.Background(), sourcePath)
	if err != nil {
		var ce *engine.CompilationError
		if errors.As(err, &ce) {
			_ = formatter.Error(string(engine.ErrCodeCompilationFailure), ce.Error(), ce.Output)
			return WrapExitError(ExitFailure, "compilation failed", err)
		}
		return WrapExitError(ExitCommandError, "compiler invocation failed", err)
	}

	if opts.Output != "" {
		encoded := hex.EncodeToString(code)
		if err := os.WriteFile(opts.Output, []byte(encoded+"\n"), 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output file", err)
		}
	}

	if formatter.Format == "json" {
		result := CompileResult{Source: sourcePath, CodeBytes: len(code)}
		if opts.Output == "" {
			result.CodeHex = hex.EncodeToString(code)
		} else {
			result.Output = opts.Output
		}
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ compiled %s: %d byte(s)\n", sourcePath, len(code))
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "wrote %s\n", opts.Output)
	} else {
		fmt.Fprintf(formatter.Writer, "%s\n", hex.EncodeToString(code))
	}
	return nil
}
