// Package providers defines the capability interfaces for the external checks
// consumed by the verification orchestrator: face analysis, document OCR, and
// face matching. Implementations wrap vendor APIs behind these interfaces so
// the orchestrator never couples to a specific provider or protocol.
package providers

import "context"

// FaceAnalysis is the normalized result of a facial analysis call.
type FaceAnalysis struct {
	FaceDetected bool
	Liveness     bool
	Gender       string  // raw provider representation; normalized by the caller
	Confidence   float64 // 0.0-1.0
}

// DocumentFields holds the structured fields extracted from an identity document.
type DocumentFields struct {
	Name         string `json:"name"`
	RGNumber     string `json:"rg_number"`
	BirthDate    string `json:"birth_date"`
	Gender       string `json:"gender"`
	IssuingOrgan string `json:"issuing_organ"`
	DocumentType string `json:"document_type"`
}

// DocumentData is the normalized result of a document OCR call.
type DocumentData struct {
	Authentic      bool
	FaceInDocument bool
	Fields         DocumentFields
}

// FaceMatch is the normalized result of comparing two face images.
type FaceMatch struct {
	Match      bool
	Confidence float64 // 0.0-1.0
}

// FaceAnalyzer detects a face in an image and reports liveness and gender.
type FaceAnalyzer interface {
	// AnalyzeFace inspects a base64-encoded image.
	// Returns a ProviderError on failure.
	AnalyzeFace(ctx context.Context, imageB64 string) (*FaceAnalysis, error)

	// Health checks if the provider is available and responding.
	Health(ctx context.Context) error
}

// DocumentExtractor runs OCR over a base64-encoded document image.
type DocumentExtractor interface {
	// ExtractDocument returns the structured fields and authenticity signal.
	// Returns a ProviderError on failure.
	ExtractDocument(ctx context.Context, imageB64 string) (*DocumentData, error)

	// Health checks if the provider is available and responding.
	Health(ctx context.Context) error
}

// FaceMatcher compares a selfie against the photo on a document.
type FaceMatcher interface {
	// CompareFaces reports whether both base64-encoded images show the same person.
	// Returns a ProviderError on failure.
	CompareFaces(ctx context.Context, selfieB64, documentB64 string) (*FaceMatch, error)
}

// Set bundles the three capabilities the orchestrator consumes. A production
// deployment may back them with different vendors; the mock set backs all
// three with fixtures.
type Set struct {
	Face     FaceAnalyzer
	Document DocumentExtractor
	Matcher  FaceMatcher
}
