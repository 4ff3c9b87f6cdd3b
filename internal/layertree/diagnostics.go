package layertree

import (
	"errors"
	"fmt"
	"log/slog"
)

// Diagnostic conditions. None of them aborts a resolution pass.
var (
	// ErrUnresolvedReference: a grouped layer references an id missing from the catalog.
	ErrUnresolvedReference = errors.New("unresolved layer reference")
	// ErrGroupInvariant: the entries of a grouped layer differ in url or typ.
	ErrGroupInvariant = errors.New("grouped layer entries differ in url or typ")
	// ErrUnknownLayer: a configured id has no catalog entry.
	ErrUnknownLayer = errors.New("unknown layer id")
	// ErrMissingName: a layer has neither a catalog entry nor a display name.
	ErrMissingName = errors.New("layer without catalog entry and name")
	// ErrStyleIndexMismatch: the parallel style lists of a styled layer differ in length.
	ErrStyleIndexMismatch = errors.New("style lists differ in length")
)

// Diagnostic is one non-fatal problem found during a pass.
type Diagnostic struct {
	LayerID string `json:"layerId" doc:"Id of the affected layer"`
	Message string `json:"message" doc:"Human readable description"`
	Err     error  `json:"-"`
}

// Kind returns a short, stable name of the condition.
func (d Diagnostic) Kind() string {
	switch {
	case errors.Is(d.Err, ErrUnresolvedReference):
		return "UnresolvedReference"
	case errors.Is(d.Err, ErrGroupInvariant):
		return "GroupInvariantViolation"
	case errors.Is(d.Err, ErrUnknownLayer):
		return "UnknownLayer"
	case errors.Is(d.Err, ErrMissingName):
		return "MissingName"
	case errors.Is(d.Err, ErrStyleIndexMismatch):
		return "StyleIndexMismatch"
	}
	return "Other"
}

func (d Diagnostic) Error() string {
	return d.Message
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}

// diagnostics collects the diagnostics of one pass and logs them.
type diagnostics struct {
	logger *slog.Logger
	list   []Diagnostic
}

func (s *diagnostics) report(layerID string, err error, format string, args ...any) Diagnostic {
	d := Diagnostic{
		LayerID: layerID,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
	s.list = append(s.list, d)
	s.logger.Warn(d.Message, "kind", d.Kind(), "layer", layerID)
	return d
}
