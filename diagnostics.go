package paramgraph

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Severity of a compile diagnostic.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "info"
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Diagnostic is one problem found during compile, attached to a node or pin.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Node     NodeRef  `json:"node"`
	Pin      PinRef   `json:"pin"`
}

func (d Diagnostic) Error() string {
	if !d.Pin.IsZero() {
		return fmt.Sprintf("%s: %s (graph %s node %d pin %d)", d.Severity, d.Message, d.Pin.Graph, d.Pin.Node, d.Pin.Pin)
	}
	return fmt.Sprintf("%s: %s (graph %s node %d)", d.Severity, d.Message, d.Node.Graph, d.Node.Node)
}

// Diagnostics is the ordered list collected over one compile.
type Diagnostics []Diagnostic

// HasErrors reports whether any diagnostic is an error.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Filter returns the diagnostics of one severity.
func (ds Diagnostics) Filter(s Severity) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

// Err combines every error diagnostic, or returns nil when there are none.
func (ds Diagnostics) Err() error {
	var result *multierror.Error
	for _, d := range ds {
		if d.Severity == SeverityError {
			result = multierror.Append(result, d)
		}
	}
	return result.ErrorOrNil()
}
