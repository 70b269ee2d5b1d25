package contracts

import (
	"context"
	"fmt"
)

// Generator abstracts contract document rendering providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (documentURL string, err error)
}

// GenerateRequest captures the inputs needed to render a contract document.
type GenerateRequest struct {
	ApplicationID string
	JobID         string
	JobTitle      string
	EmployerID    string
	EmployerName  string
	EmployeeID    string
	EmployeeName  string
}

// StaticGenerator is a stub implementation until provider wiring is added.
// It returns a deterministic URL keyed by application so downstream records
// stay stable across retries.
type StaticGenerator struct {
	BaseURL string
}

// Generate returns a deterministic document URL.
func (g StaticGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	_ = ctx
	base := g.BaseURL
	if base == "" {
		base = "/api/v1/contracts/documents"
	}
	return fmt.Sprintf("%s/%s.pdf", base, req.ApplicationID), nil
}

var _ Generator = (*StaticGenerator)(nil)
