// Package models defines the verification record and its lifecycle.
package models

import (
	"fmt"
	"time"

	"verifid/internal/providers"
	id "verifid/pkg/domain"
)

// Status is the terminal state of a verification attempt.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// RGData holds the document fields extracted during verification, persisted
// alongside the record for later review.
type RGData struct {
	Name         string `json:"name"`
	RGNumber     string `json:"rg_number"`
	BirthDate    string `json:"birth_date"`
	Gender       string `json:"gender"`
	IssuingOrgan string `json:"issuing_organ"`
	DocumentType string `json:"document_type"`
}

// RGDataFrom maps extracted document fields onto the persisted form.
func RGDataFrom(f providers.DocumentFields) RGData {
	return RGData{
		Name:         f.Name,
		RGNumber:     f.RGNumber,
		BirthDate:    f.BirthDate,
		Gender:       f.Gender,
		IssuingOrgan: f.IssuingOrgan,
		DocumentType: f.DocumentType,
	}
}

// Record is one verification attempt for a user. Records are append-only;
// a user's current verification state is the latest record plus the verified
// flag on the account.
//
// FaceGender and RGGender hold the normalized gender signals the gate
// compared, so the policy decision stays auditable even though only the raw
// OCR string survives in RG.
type Record struct {
	ID              id.VerificationID
	UserID          id.UserID
	Status          Status
	FaceConfidence  float64
	MatchConfidence float64
	FaceGender      string
	RGGender        string
	RG              RGData
	Reason          string
	VerifiedAt      *time.Time
	CreatedAt       time.Time
}

// Validate checks record invariants before persistence.
func (r *Record) Validate() error {
	if r.ID.IsNil() {
		return fmt.Errorf("verification id is required")
	}
	if r.UserID.IsNil() {
		return fmt.Errorf("user id is required")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid status %q", r.Status)
	}
	if r.FaceConfidence < 0 || r.FaceConfidence > 1 {
		return fmt.Errorf("face confidence %v out of range", r.FaceConfidence)
	}
	if r.MatchConfidence < 0 || r.MatchConfidence > 1 {
		return fmt.Errorf("match confidence %v out of range", r.MatchConfidence)
	}
	if r.Status == StatusApproved && r.VerifiedAt == nil {
		return fmt.Errorf("approved record requires verified_at")
	}
	return nil
}
