// Package mock provides deterministic provider implementations for tests and
// demo deployments. The default fixtures mirror the reference behavior: a
// live female face at 0.85 confidence, an authentic RG for Maria Silva Santos,
// and a 0.92-confidence face match.
package mock

import (
	"context"

	"verifid/internal/providers"
)

const providerName = "mock"

// Fixtures controls the responses returned by the mock providers. Tests
// override individual fields to exercise each orchestration gate.
type Fixtures struct {
	Face      providers.FaceAnalysis
	FaceErr   error
	Document  providers.DocumentData
	DocErr    error
	Match     providers.FaceMatch
	MatchErr  error
	HealthErr error
}

// DefaultFixtures returns the reference responses.
func DefaultFixtures() Fixtures {
	return Fixtures{
		Face: providers.FaceAnalysis{
			FaceDetected: true,
			Liveness:     true,
			Gender:       "female",
			Confidence:   0.85,
		},
		Document: providers.DocumentData{
			Authentic:      true,
			FaceInDocument: true,
			Fields: providers.DocumentFields{
				Name:         "Maria Silva Santos",
				RGNumber:     "12.345.678-9",
				BirthDate:    "15/03/1990",
				Gender:       "F",
				IssuingOrgan: "SSP/SP",
				DocumentType: "RG",
			},
		},
		Match: providers.FaceMatch{
			Match:      true,
			Confidence: 0.92,
		},
	}
}

// Provider implements all three capability interfaces from fixtures.
type Provider struct {
	fixtures Fixtures
}

// New builds a mock provider with the reference fixtures.
func New() *Provider {
	return &Provider{fixtures: DefaultFixtures()}
}

// NewWithFixtures builds a mock provider with custom responses.
func NewWithFixtures(f Fixtures) *Provider {
	return &Provider{fixtures: f}
}

// Set returns the provider wired as all three capabilities.
func (p *Provider) Set() providers.Set {
	return providers.Set{Face: p, Document: p, Matcher: p}
}

func (p *Provider) AnalyzeFace(_ context.Context, _ string) (*providers.FaceAnalysis, error) {
	if p.fixtures.FaceErr != nil {
		return nil, p.fixtures.FaceErr
	}
	out := p.fixtures.Face
	return &out, nil
}

func (p *Provider) ExtractDocument(_ context.Context, _ string) (*providers.DocumentData, error) {
	if p.fixtures.DocErr != nil {
		return nil, p.fixtures.DocErr
	}
	out := p.fixtures.Document
	return &out, nil
}

func (p *Provider) CompareFaces(_ context.Context, _, _ string) (*providers.FaceMatch, error) {
	if p.fixtures.MatchErr != nil {
		return nil, p.fixtures.MatchErr
	}
	out := p.fixtures.Match
	return &out, nil
}

func (p *Provider) Health(_ context.Context) error {
	return p.fixtures.HealthErr
}

// Interface checks.
var (
	_ providers.FaceAnalyzer      = (*Provider)(nil)
	_ providers.DocumentExtractor = (*Provider)(nil)
	_ providers.FaceMatcher       = (*Provider)(nil)
)
