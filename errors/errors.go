package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConvert Phase = "convert" // source graph to snapshot
	PhaseLoad    Phase = "load"    // decompiler module loading
	PhaseCall    Phase = "call"    // boundary call
	PhaseDecode  Phase = "decode"  // reading values returned across the boundary
	PhaseParse   Phase = "parse"   // data dump parsing
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidReference Kind = "invalid_reference"
	KindInvalidUTF8      Kind = "invalid_utf8"
	KindReleased         Kind = "released"
	KindTempFile         Kind = "temp_file"
	KindWrite            Kind = "write"
	KindLoad             Kind = "load"
	KindSymbol           Kind = "symbol"
	KindUnsupported      Kind = "unsupported"
	KindNotFound         Kind = "not_found"
	KindInvalidInput     Kind = "invalid_input"
	KindAllocation       Kind = "allocation"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindTrap             Kind = "trap"
	KindContext          Kind = "context"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.message()
	if e.Cause == nil {
		return msg
	}
	if e.Kind == KindContext {
		return msg + ": " + e.Cause.Error()
	}
	return msg + " (caused by: " + e.Cause.Error() + ")"
}

// message renders this layer without its cause.
func (e *Error) message() string {
	if e.Kind == KindContext {
		return e.Detail
	}

	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the location path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Context wraps cause with a breadcrumb describing what was being done.
// A nil cause yields nil so call sites can wrap unconditionally.
func Context(cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &Error{
		Kind:   KindContext,
		Detail: fmt.Sprintf(format, args...),
		Cause:  cause,
	}
}

// Chain returns one message per layer of err, outermost first.
func Chain(err error) []string {
	var out []string
	for err != nil {
		next := stderrors.Unwrap(err)
		var msg string
		switch e := err.(type) {
		case *Error:
			msg = e.message()
		default:
			msg = err.Error()
			if next != nil {
				msg = strings.TrimSuffix(msg, ": "+next.Error())
			}
		}
		out = append(out, msg)
		err = next
	}
	return out
}

// Pretty renders the causal chain of err on multiple lines.
func Pretty(err error) string {
	return strings.Join(Chain(err), "\n  caused by: ")
}

// Convenience constructors for the error taxonomy

// InvalidReference creates an error for an index outside its source table
func InvalidReference(entity string, index uint32, length int) *Error {
	return &Error{
		Phase:  PhaseConvert,
		Kind:   KindInvalidReference,
		Path:   []string{entity},
		Detail: fmt.Sprintf("%s #%d out of range (table length %d)", entity, index, length),
		Value:  index,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// Released creates an error for access to an already released foreign value
func Released(what string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindReleased,
		Detail: fmt.Sprintf("%s already released", what),
	}
}

// TempFile creates a temporary file creation error
func TempFile(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindTempFile,
		Detail: "could not create temporary file for dynamic library",
		Cause:  cause,
	}
}

// Write creates a payload write error
func Write(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindWrite,
		Detail: fmt.Sprintf("could not write dynamic library data to %s", path),
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoad,
		Detail: detail,
		Cause:  cause,
	}
}

// Symbol creates a symbol resolution error
func Symbol(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindSymbol,
		Detail: fmt.Sprintf("failed to load %s", name),
		Value:  name,
		Cause:  cause,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("offset %d length %d outside memory", offset, length),
		Value:  offset,
	}
}

// Trap creates an error for a guest call that did not return normally
func Trap(function string, cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindTrap,
		Detail: fmt.Sprintf("call %s", function),
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidInput,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// DecompileError is a failure reported by the decompiler itself through the
// error byte of its return value.
type DecompileError struct {
	Message string
	Code    uint8
}

// Error returns the decompiler's message. Codes other than 1 carry
// supplementary detail and are reported together with the numeric code.
func (e *DecompileError) Error() string {
	if e.Code == 1 {
		return e.Message
	}
	return fmt.Sprintf("decompilation failed with error code %d: %s", e.Code, e.Message)
}

// Is reports whether target matches this error type
func (e *DecompileError) Is(target error) bool {
	_, ok := target.(*DecompileError)
	return ok
}
