// Package printer contains shared types to avoid import cycles.
package printer

import "github.com/adcondev/print-bridge/pkg/printers"

// Summary provides a lightweight overview for health checks
type Summary struct {
	Status        string `json:"status"` // "ok", "warning", "error"
	Backend       string `json:"backend"`
	DetectedCount int    `json:"detected_count"`
	SkippedCount  int    `json:"skipped_count,omitempty"`
	Error         string `json:"error,omitempty"`
}

// DetailDTO is the JSON response format for printer details
type DetailDTO struct {
	Name       string `json:"name"`
	SystemName string `json:"system_name"`
	Driver     string `json:"driver,omitempty"`
}

// Summarize condenses a discovery result. A failed query is "error", a
// successful query that found nothing is "warning".
func Summarize(backend string, d printers.Discovery) Summary {
	s := Summary{
		Status:        "ok",
		Backend:       backend,
		DetectedCount: len(d.Printers),
		SkippedCount:  len(d.Skipped),
	}
	switch {
	case d.Failed():
		s.Status = "error"
		s.Error = d.Err.Error()
	case len(d.Printers) == 0:
		s.Status = "warning"
	}
	return s
}

// ToDTOs converts printers for the wire.
func ToDTOs(list []printers.Printer) []DetailDTO {
	dtos := make([]DetailDTO, len(list))
	for i, p := range list {
		dtos[i] = DetailDTO{Name: p.Name, SystemName: p.SystemName, Driver: p.DriverName}
	}
	return dtos
}
