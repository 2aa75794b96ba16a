package asm

import "fmt"

// Severity classifies a Diagnostic. Assembly continues past WARNING but assembly output is
// suppressed if any ERROR or INT_ERROR is recorded.
type Severity uint8

const (
	WARNING Severity = iota
	ERROR
	INT_ERROR
)

func (s Severity) String() string {
	switch s {
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case INT_ERROR:
		return "INT_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Diagnostic is one message produced during assembly, carrying its severity and source position.
type Diagnostic struct {
	Severity     Severity
	Line, Column int
	Message      string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s [%d:%d]: %s", d.Severity, d.Line, d.Column, d.Message)
}

// Diagnostics is an accumulated diagnostic list with convenience tallies.
type Diagnostics []Diagnostic

// Add appends a diagnostic.
func (ds *Diagnostics) Add(sev Severity, line, col int, format string, args ...any) {
	*ds = append(*ds, Diagnostic{
		Severity: sev,
		Line:     line,
		Column:   col,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Counts returns the number of warnings, errors, and internal errors recorded.
func (ds Diagnostics) Counts() (warnings, errs, internal int) {
	for _, d := range ds {
		switch d.Severity {
		case WARNING:
			warnings++
		case ERROR:
			errs++
		case INT_ERROR:
			internal++
		}
	}

	return
}

// OK reports whether assembly succeeded: zero ERROR and zero INT_ERROR diagnostics.
func (ds Diagnostics) OK() bool {
	_, errs, internal := ds.Counts()

	return errs == 0 && internal == 0
}

// Summary renders the "W warnings, E errors, I internal errors" line the CLI prints after assembly.
func (ds Diagnostics) Summary() string {
	w, e, i := ds.Counts()

	return fmt.Sprintf("%d warnings, %d errors, %d internal errors", w, e, i)
}
