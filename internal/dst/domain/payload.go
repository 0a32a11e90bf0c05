// Package domain contains the export payload sent to the national
// statistics office.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReportType marks a row as a newly granted appropriation or a change to
// one previously reported.
type ReportType string

const (
	ReportTypeNew     ReportType = "Ny"
	ReportTypeChanged ReportType = "Ændring"
)

// Row is one appropriation in the export.
type Row struct {
	CaseSbsysID          string     `json:"caseSbsysId"`
	CprNumber            string     `json:"cprNumber"`
	AppropriationSbsysID string     `json:"appropriationSbsysId"`
	SectionParagraph     string     `json:"sectionParagraph,omitempty"`
	DSTCode              string     `json:"dstCode,omitempty"`
	StartDate            time.Time  `json:"startDate"`
	EndDate              *time.Time `json:"endDate,omitempty"`
	ReportType           ReportType `json:"reportType"`
}

// Payload is a complete export batch.
type Payload struct {
	BatchID         uuid.UUID `json:"batchId"`
	GeneratedAt     time.Time `json:"generatedAt"`
	MunicipalityCPR string    `json:"municipalityCpr"`
	MunicipalityID  string    `json:"municipalityId"`
	TestMode        bool      `json:"testMode"`
	Rows            []Row     `json:"rows"`
}

type Service interface {
	// BuildPayload collects the appropriations whose granted main activity
	// started (or, for one-time plans, paid) within [from, to]. Either
	// bound may be nil.
	BuildPayload(ctx context.Context, from, to *time.Time) (*Payload, error)
}
