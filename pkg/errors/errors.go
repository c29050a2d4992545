package errors

import (
	"fmt"
	"io"
	"os"
	"strings"

	"mermaidcopy/pkg/logger"

	"github.com/fatih/color"
)

type ExitCode int

const (
	ExitCodeSuccess        ExitCode = 0
	ExitCodeGeneral        ExitCode = 1
	ExitCodeConfig         ExitCode = 2
	ExitCodeValidation     ExitCode = 6
	ExitCodeFileOperation  ExitCode = 7
	ExitCodeCancellation   ExitCode = 8
	ExitCodeImageDecode    ExitCode = 11
	ExitCodeDrawingContext ExitCode = 12
	ExitCodeImageEncode    ExitCode = 13
	ExitCodeClipboard      ExitCode = 14
	ExitCodeNoDiagram      ExitCode = 15
)

// Standardized error messages for consistent user-facing errors
const (
	ErrMsgImageDecode    = "Failed to load SVG as image"
	ErrMsgDrawingContext = "Failed to get canvas 2d context"
	ErrMsgImageEncode    = "Failed to create PNG data"
	ErrMsgClipboard      = "Failed to write to clipboard"
	ErrMsgNoDiagram      = "No diagram found"
	ErrMsgCopyFailed     = "Failed to copy diagram"
	ErrMsgInvalidInput   = "Invalid input provided"
)

type Error struct {
	Code       ExitCode
	Message    string
	Underlying error
	Suggestion string
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func New(code ExitCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func NewWithError(code ExitCode, message string, err error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
	}
}

func NewWithSuggestion(code ExitCode, message string, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	if wrapped, ok := err.(*Error); ok {
		return &Error{
			Code:       wrapped.Code,
			Message:    message + ": " + wrapped.Message,
			Underlying: wrapped.Underlying,
			Suggestion: wrapped.Suggestion,
		}
	}

	return &Error{
		Code:       ExitCodeGeneral,
		Message:    message,
		Underlying: err,
	}
}

// IsExitCode reports whether err, or any *Error in its chain, carries code.
func IsExitCode(err error, code ExitCode) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// CodeOf returns the exit code carried by err, or ExitCodeGeneral.
func CodeOf(err error) ExitCode {
	if err == nil {
		return ExitCodeSuccess
	}
	for e := err; e != nil; {
		if typed, ok := e.(*Error); ok {
			return typed.Code
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return ExitCodeGeneral
}

// HandleReturn logs err, prints it to stderr and returns the exit code the
// process should terminate with. The caller is responsible for exiting.
func HandleReturn(err error) ExitCode {
	return handle(os.Stderr, err)
}

func handle(w io.Writer, err error) ExitCode {
	if err == nil {
		return ExitCodeSuccess
	}

	exitCode := CodeOf(err)
	message := err.Error()
	var suggestion string

	if e, ok := err.(*Error); ok {
		message = e.Message
		suggestion = e.Suggestion

		if e.Underlying != nil {
			logger.Error().Err(e.Underlying).Int("code", int(e.Code)).Msg(e.Message)
			message = e.Error()
		} else {
			logger.Error().Int("code", int(e.Code)).Msg(e.Message)
		}
	} else {
		logger.Error().Msg(message)
	}

	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	fmt.Fprintln(w)
	red.Fprint(w, "Error: ")
	fmt.Fprintln(w, message)

	if suggestion != "" {
		yellow.Fprint(w, "Suggestion: ")
		lines := strings.Split(suggestion, "\n")
		for i, line := range lines {
			if i == 0 {
				fmt.Fprintln(w, line)
			} else {
				if strings.HasPrefix(line, "  -") {
					cyan.Fprintln(w, line)
				} else {
					fmt.Fprintln(w, "           "+line)
				}
			}
		}
	}

	fmt.Fprintln(w)

	return exitCode
}

// HandleQuietReturn processes an error quietly and returns the appropriate exit code.
func HandleQuietReturn(err error) ExitCode {
	if err == nil {
		return ExitCodeSuccess
	}
	if _, ok := err.(*Error); !ok {
		logger.Error().Err(err).Msg("operation failed")
	}
	return CodeOf(err)
}

func ImageDecodeError(err error) *Error {
	return &Error{
		Code:       ExitCodeImageDecode,
		Message:    ErrMsgImageDecode,
		Underlying: err,
		Suggestion: "The diagram markup could not be parsed. Try copying it as SVG instead (--as svg).",
	}
}

func DrawingContextError(width, height int) *Error {
	return &Error{
		Code:       ExitCodeDrawingContext,
		Message:    fmt.Sprintf("%s (%dx%d surface)", ErrMsgDrawingContext, width, height),
		Suggestion: "Lower the scale factor with --scale or in the config file.",
	}
}

func ImageEncodeError(err error) *Error {
	return &Error{
		Code:       ExitCodeImageEncode,
		Message:    ErrMsgImageEncode,
		Underlying: err,
	}
}

func ClipboardError(err error) *Error {
	return &Error{
		Code:       ExitCodeClipboard,
		Message:    ErrMsgClipboard,
		Underlying: err,
		Suggestion: "Check that a clipboard tool is available (wl-copy, xclip or xsel on Linux), or use 'mermaidcopy export' to write a file.",
	}
}

func NoDiagramError(where string) *Error {
	msg := ErrMsgNoDiagram
	if where != "" {
		msg = fmt.Sprintf("%s in %s", ErrMsgNoDiagram, where)
	}
	return &Error{
		Code:       ExitCodeNoDiagram,
		Message:    msg,
		Suggestion: "Use 'mermaidcopy scan <file>' to list the diagrams of a document.",
	}
}

func NotFoundError(resource string) *Error {
	return &Error{
		Code:       ExitCodeNoDiagram,
		Message:    fmt.Sprintf("%s not found", resource),
		Suggestion: "Use 'mermaidcopy scan <file>' to list the diagrams of a document.",
	}
}

func ConfigError(message string) *Error {
	return &Error{
		Code:       ExitCodeConfig,
		Message:    message,
		Suggestion: "Check your configuration file or set the required environment variables.",
	}
}

func ValidationError(message string) *Error {
	return &Error{
		Code:    ExitCodeValidation,
		Message: message,
	}
}

func FileError(message string, err error) *Error {
	return &Error{
		Code:       ExitCodeFileOperation,
		Message:    message,
		Underlying: err,
	}
}

func CancelledError(operation string) *Error {
	return &Error{
		Code:       ExitCodeCancellation,
		Message:    fmt.Sprintf("Operation cancelled: %s", operation),
		Suggestion: "The operation was interrupted. No changes were made.",
	}
}

// CommandError wraps errors from command handlers with consistent formatting.
// It preserves the original error chain for inspection while providing
// a user-friendly message.
func CommandError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", operation, err)
}
