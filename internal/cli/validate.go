package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ircevents/internal/rules"
)

// ValidationError is one rule problem.
type ValidationError struct {
	Rule    string `json:"rule,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// RuleInfo describes one compiled rule.
type RuleInfo struct {
	Name    string `json:"name"`
	When    string `json:"when"`
	Actions string `json:"actions"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Rules  []RuleInfo        `json:"rules"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rules-dir>",
		Short: "Compile CUE rules and report errors",
		Long: `Compile every CUE rule file in a directory without running anything.

All rule errors are reported with their source position, not just the first.

Exit codes:
  0 - All rules valid
  1 - One or more rules invalid
  2 - Command error (directory not found, no CUE files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("rules directory not found: %s", dir))
	}
	files, err := rules.FindCUEFiles(dir)
	if err != nil || len(files) == 0 {
		return outputValidateError(formatter, ErrCodeNoFiles, fmt.Sprintf("no CUE files found in %s", dir))
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", len(files), dir)

	compiled, loadErr := rules.Load(dir)

	result := ValidationResult{Valid: loadErr == nil, Rules: []RuleInfo{}}
	for _, r := range compiled {
		formatter.VerboseLog("Compiled rule: %s", r.Name)
		result.Rules = append(result.Rules, RuleInfo{Name: r.Name, When: r.When.String(), Actions: r.Actions()})
	}
	for _, err := range flattenErrors(loadErr) {
		result.Errors = append(result.Errors, toValidationError(err))
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// flattenErrors expands errors.Join trees into their leaves.
func flattenErrors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flattenErrors(e)...)
		}
		return out
	}
	return []error{err}
}

func toValidationError(err error) ValidationError {
	var ce *rules.CompileError
	if !errors.As(err, &ce) {
		return ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
	}
	v := ValidationError{Rule: ce.Rule, Field: ce.Field, Message: ce.Message, Code: ErrCodeCompileFailed}
	if ce.Pos.IsValid() {
		v.File = ce.Pos.Filename()
		v.Line = ce.Pos.Line()
	}
	return v
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, r := range result.Rules {
		fmt.Fprintf(formatter.Writer, "  %s: when %s -> %s\n", r.Name, r.When, r.Actions)
	}
	fmt.Fprintf(formatter.Writer, "✓ %d rule(s) valid\n", len(result.Rules))
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return exitf(ExitCommandError, "%s: %s", code, message)
}

// outputValidationErrors outputs every rule error.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.writeJSON(response); err != nil {
			return err
		}
		return exitf(ExitFailure, "validation failed with %d error(s)", len(errs))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", err.File, err.Line)
		}
		where := err.Field
		if err.Rule != "" {
			where = "rule." + err.Rule + "." + err.Field
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, where, err.Message)
	}

	return exitf(ExitFailure, "validation failed with %d error(s)", len(errs))
}
