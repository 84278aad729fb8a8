package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"verifid/internal/providers"
	"verifid/internal/verification/models"
	"verifid/internal/verification/tracer"
)

// Each provider call runs under its own deadline and trace span. Calls are
// issued exactly once per attempt; retry policy belongs to the provider
// client, not the orchestrator.

func (s *Service) analyzeFace(ctx context.Context, selfieB64 string) (*providers.FaceAnalysis, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	callCtx, span := s.tracer.Start(callCtx, tracer.SpanFaceAnalysis)
	face, err := s.set.Face.AnalyzeFace(callCtx, selfieB64)
	if err == nil {
		span.SetAttributes(
			tracer.Bool("face_detected", face.FaceDetected),
			tracer.Bool("liveness", face.Liveness),
			tracer.Float64(tracer.AttrConfidence, face.Confidence),
		)
	}
	span.End(err)
	return face, err
}

func (s *Service) extractDocument(ctx context.Context, frontB64 string) (*providers.DocumentData, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	callCtx, span := s.tracer.Start(callCtx, tracer.SpanDocumentOCR)
	doc, err := s.set.Document.ExtractDocument(callCtx, frontB64)
	if err == nil {
		span.SetAttributes(
			tracer.Bool("authentic", doc.Authentic),
			tracer.Bool("face_in_document", doc.FaceInDocument),
		)
	}
	span.End(err)
	return doc, err
}

func (s *Service) compareFaces(ctx context.Context, selfieB64, frontB64 string) (*providers.FaceMatch, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	callCtx, span := s.tracer.Start(callCtx, tracer.SpanFaceMatch)
	match, err := s.set.Matcher.CompareFaces(callCtx, selfieB64, frontB64)
	if err == nil {
		span.SetAttributes(
			tracer.Bool("match", match.Match),
			tracer.Float64(tracer.AttrConfidence, match.Confidence),
		)
	}
	span.End(err)
	return match, err
}

// Probe target names in the diagnostics response.
const (
	probeFaceAPI = "face_api"
	probeOCRAPI  = "ocr_api"
)

// Probe result statuses.
const (
	probeStatusOK    = "ok"
	probeStatusError = "error"
)

// ProbeProviders checks the face analysis and document OCR providers in
// parallel and reports per-provider reachability. Diagnostic only: it never
// mutates persisted state.
func (s *Service) ProbeProviders(ctx context.Context) (*models.ProbeResponse, error) {
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	probeCtx, span := s.tracer.Start(probeCtx, tracer.SpanProbe)

	results := make(map[string]models.ProbeResult, 2)
	var g errgroup.Group
	var faceErr, docErr error

	g.Go(func() error {
		faceErr = s.set.Face.Health(probeCtx)
		return nil
	})
	g.Go(func() error {
		docErr = s.set.Document.Health(probeCtx)
		return nil
	})
	_ = g.Wait() //nolint:errcheck // probe goroutines never return errors

	results[probeFaceAPI] = probeResult(probeFaceAPI, faceErr)
	results[probeOCRAPI] = probeResult(probeOCRAPI, docErr)

	status := "ok"
	for _, r := range results {
		if r.Status != probeStatusOK {
			status = "degraded"
		}
	}
	span.SetAttributes(tracer.String(tracer.AttrOutcome, status))
	span.End(nil)

	s.logger.InfoContext(ctx, "provider probe completed", "status", status)
	return &models.ProbeResponse{Status: status, Providers: results}, nil
}

func probeResult(provider string, err error) models.ProbeResult {
	if err != nil {
		return models.ProbeResult{
			Status:   probeStatusError,
			Provider: provider,
			Details:  err.Error(),
		}
	}
	return models.ProbeResult{
		Status:   probeStatusOK,
		Provider: provider,
		Details:  "provider reachable",
	}
}
