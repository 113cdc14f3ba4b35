package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	converrors "github.com/conduit-lang/opconvert/internal/converter/errors"
)

// Level represents the severity of a terminal message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// MessageOptions configures message formatting
type MessageOptions struct {
	Level        Level
	Context      string
	Problem      string
	Detail       string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

func newColor(noColor bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if noColor {
		c.DisableColor()
	}
	return c
}

// FormatMessage renders a message with optional suggestions and help commands
//
// Example output:
//
//	❌ UNSUPPORTED OPERATOR: Matmul_3 (Matmul)
//	   Operator 'Matmul' has no MindSpore equivalent
//
//	   Did you mean: MatMul, Mul?
//
//	   → List supported operators: opconvert ops
func FormatMessage(opts MessageOptions) string {
	var b strings.Builder

	var header, body *color.Color
	var symbol string
	switch opts.Level {
	case LevelWarning:
		header = newColor(opts.NoColor, color.FgYellow, color.Bold)
		body = newColor(opts.NoColor, color.FgYellow)
		symbol = "⚠️"
	case LevelInfo:
		header = newColor(opts.NoColor, color.FgCyan, color.Bold)
		body = newColor(opts.NoColor, color.FgCyan)
		symbol = "ℹ️"
	default:
		header = newColor(opts.NoColor, color.FgRed, color.Bold)
		body = newColor(opts.NoColor, color.FgRed)
		symbol = "❌"
	}

	if opts.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if opts.Detail != "" {
		body.Fprintf(&b, "   %s\n", opts.Detail)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		newColor(opts.NoColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := newColor(opts.NoColor, color.FgCyan)
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// ConversionError formats a single conversion diagnostic. For unsupported
// operators, supported lists the registered operator types used for
// suggestions.
func ConversionError(err *converrors.ConversionError, supported []string, noColor bool) string {
	opts := MessageOptions{
		Level:   LevelError,
		Context: strings.ReplaceAll(err.Type, "_", " "),
		Problem: subject(err),
		Detail:  err.Message,
		NoColor: noColor,
	}
	if err.Severity == converrors.SeverityWarning {
		opts.Level = LevelWarning
	}

	switch err.Code {
	case converrors.ErrCodeUnsupportedOperator:
		opts.Suggestions = FindSimilar(err.OpType, supported, nil)
		opts.HelpCommands = []string{
			"List supported operators: opconvert ops",
			"Skip unsupported nodes: opconvert convert --on-unsupported skip",
		}
	default:
		if err.Suggestion != "" {
			opts.HelpCommands = []string{err.Suggestion}
		}
	}
	if err.Documentation != "" {
		opts.HelpCommands = append(opts.HelpCommands, "Learn more: "+err.Documentation)
	}

	return FormatMessage(opts)
}

func subject(err *converrors.ConversionError) string {
	switch {
	case err.Node != "" && err.OpType != "":
		return fmt.Sprintf("%s (%s)", err.Node, err.OpType)
	case err.Node != "":
		return err.Node
	default:
		return string(err.Code)
	}
}

// WriteDiagnostics writes every diagnostic in errs followed by a summary line
func WriteDiagnostics(w io.Writer, errs converrors.ErrorList, supported []string, noColor bool) {
	for _, err := range errs {
		fmt.Fprintln(w, ConversionError(err, supported, noColor))
	}
	if len(errs) == 0 {
		return
	}
	errCount, warnCount := errs.ErrorCount()
	summary := fmt.Sprintf("%d error(s), %d warning(s)", errCount, warnCount)
	if errCount > 0 {
		newColor(noColor, color.FgRed, color.Bold).Fprintln(w, summary)
		return
	}
	newColor(noColor, color.FgYellow, color.Bold).Fprintln(w, summary)
}

// ConfigError formats a configuration failure
func ConfigError(message string, noColor bool) string {
	return FormatMessage(MessageOptions{
		Level:   LevelError,
		Context: "CONFIGURATION ERROR",
		Problem: message,
		HelpCommands: []string{
			"View config: cat opconvert.yaml",
			"Get help: opconvert --help",
		},
		NoColor: noColor,
	})
}

// Warning formats a warning message
func Warning(message string, noColor bool) string {
	return FormatMessage(MessageOptions{Level: LevelWarning, Problem: message, NoColor: noColor})
}

// Info formats an informational message
func Info(message string, noColor bool) string {
	return FormatMessage(MessageOptions{Level: LevelInfo, Problem: message, NoColor: noColor})
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	return newColor(noColor, color.FgGreen, color.Bold).Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}
