// Package service implements the verification orchestrator: the ordered gate
// sequence that combines face analysis, document OCR, and face matching into
// an approve/deny outcome, with an idempotency guard per subject.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"verifid/internal/audit"
	"verifid/internal/gender"
	"verifid/internal/providers"
	"verifid/internal/sentinel"
	"verifid/internal/verification/metrics"
	"verifid/internal/verification/models"
	"verifid/internal/verification/store"
	"verifid/internal/verification/tracer"
	id "verifid/pkg/domain"
	pkgerrors "verifid/pkg/domain-errors"
)

// defaultProviderTimeout bounds each external provider call. Expiry is
// reported as an upstream failure, not a user error.
const defaultProviderTimeout = 10 * time.Second

// Gate names used in metrics and rejection reasons.
const (
	gateInput        = "input"
	gateSubject      = "subject"
	gateIdempotency  = "idempotency"
	gateFaceDetect   = "face_detection"
	gateLiveness     = "liveness"
	gateAuthenticity = "document_authenticity"
	gateFaceMatch    = "face_match"
	gateGender       = "gender"
)

// Attempt outcomes used in metrics and audit events.
const (
	outcomeApproved        = "approved"
	outcomeRejected        = "rejected"
	outcomeAlreadyVerified = "already_verified"
	outcomeProviderError   = "provider_error"
	outcomeInternalError   = "internal_error"
)

// AuditPublisher is the audit sink consumed by the orchestrator.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs the verification gate sequence and owns the persisted
// decision. All rules live here so they stay centralized and testable.
type Service struct {
	store    store.Store
	subjects store.SubjectStore
	set      providers.Set
	target   gender.Gender
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
	auditor  AuditPublisher
	now      func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics collector for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger for the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTracer sets the tracer for the service.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithAudit sets the audit publisher for the service.
func WithAudit(a AuditPublisher) Option {
	return func(s *Service) { s.auditor = a }
}

// WithProviderTimeout overrides the per-call provider timeout.
func WithProviderTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock injects a time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a verification service.
// Panics if required dependencies are nil - fail fast at startup.
func New(st store.Store, subjects store.SubjectStore, set providers.Set, target gender.Gender, opts ...Option) *Service {
	if st == nil {
		panic("service.New: store is required")
	}
	if subjects == nil {
		panic("service.New: subject store is required")
	}
	if set.Face == nil || set.Document == nil || set.Matcher == nil {
		panic("service.New: all three providers are required")
	}

	s := &Service{
		store:    st,
		subjects: subjects,
		set:      set,
		target:   target,
		timeout:  defaultProviderTimeout,
		logger:   slog.Default(),
		tracer:   tracer.NewNoop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify runs the full gate sequence for one subject. Gates short-circuit:
// the first violation determines the outcome and nothing is persisted unless
// every gate passes.
func (s *Service) Verify(ctx context.Context, userID id.UserID, req *models.VerifyRequest) (*models.VerifyResponse, error) {
	start := s.now()
	defer func() {
		s.metrics.ObserveVerifyLatency(time.Since(start))
	}()

	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify,
		tracer.String(tracer.AttrUserID, userID.String()),
	)

	resp, err := s.verify(ctx, userID, req)
	span.SetAttributes(tracer.String(tracer.AttrOutcome, outcomeOf(err)))
	span.End(err)
	return resp, err
}

func (s *Service) verify(ctx context.Context, userID id.UserID, req *models.VerifyRequest) (*models.VerifyResponse, error) {
	// Gate: input completeness. Fails before any provider is called.
	if req == nil {
		return nil, s.gateFailure(gateInput, pkgerrors.New(pkgerrors.CodeBadRequest, "request body is required"))
	}
	if missing := req.Validate(); len(missing) > 0 {
		return nil, s.gateFailure(gateInput, pkgerrors.NewWithDetails(
			pkgerrors.CodeBadRequest,
			"missing required images",
			map[string]any{"missing_fields": missing},
		))
	}

	// Gate: subject existence.
	subject, err := s.subjects.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.gateFailure(gateSubject, pkgerrors.New(pkgerrors.CodeNotFound, "user not found"))
		}
		return nil, s.internal("find subject", err)
	}

	// Gate: idempotency fast path. Re-checked under the transaction before
	// commit; this check only avoids paying for provider calls when the
	// outcome is already determined.
	if subject.Verified {
		return nil, s.alreadyVerified()
	}
	if _, err := s.store.FindBySubjectAndStatus(ctx, userID, models.StatusApproved); err == nil {
		return nil, s.alreadyVerified()
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, s.internal("check existing approval", err)
	}

	s.emitAudit(ctx, userID, audit.EventVerificationStarted, "", "")

	// Gates: face analysis, liveness.
	face, err := s.analyzeFace(ctx, req.SelfieImage)
	if err != nil {
		return nil, s.providerFailure(ctx, userID, err)
	}
	if !face.FaceDetected {
		return nil, s.reject(ctx, userID, gateFaceDetect, pkgerrors.New(
			pkgerrors.CodeValidation, "no face detected in selfie"))
	}
	if !face.Liveness {
		return nil, s.reject(ctx, userID, gateLiveness, pkgerrors.New(
			pkgerrors.CodeValidation, "face liveness check failed"))
	}

	// Gates: document OCR, authenticity. The face-in-document signal is
	// informational; the face match gate below covers the comparison.
	doc, err := s.extractDocument(ctx, req.RGFrontImage)
	if err != nil {
		return nil, s.providerFailure(ctx, userID, err)
	}
	if !doc.Authentic {
		return nil, s.reject(ctx, userID, gateAuthenticity, pkgerrors.NewWithDetails(
			pkgerrors.CodeValidation, "document could not be authenticated",
			map[string]any{"document_type": doc.Fields.DocumentType}))
	}

	// Gate: face match.
	match, err := s.compareFaces(ctx, req.SelfieImage, req.RGFrontImage)
	if err != nil {
		return nil, s.providerFailure(ctx, userID, err)
	}
	if !match.Match {
		return nil, s.reject(ctx, userID, gateFaceMatch, pkgerrors.NewWithDetails(
			pkgerrors.CodeValidation, "selfie does not match document photo",
			map[string]any{"match_confidence": match.Confidence}))
	}

	// Gate: gender. Both normalized signals must equal the configured
	// target value; agreement between the two is not sufficient.
	faceGender := gender.Normalize(face.Gender)
	docGender := gender.Normalize(doc.Fields.Gender)
	if faceGender != s.target || docGender != s.target {
		return nil, s.reject(ctx, userID, gateGender, pkgerrors.NewWithDetails(
			pkgerrors.CodeGenderGate, "gender verification failed",
			map[string]any{
				"face_gender": faceGender.String(),
				"rg_gender":   docGender.String(),
			}))
	}

	// Persist: record insert and subject flag flip are atomic, with the
	// idempotency check re-run under the subject lock.
	rec, err := s.persistApproval(ctx, userID, face, doc, match, faceGender, docGender)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAttempt(outcomeApproved)
	s.emitAudit(ctx, userID, audit.EventVerificationApproved, outcomeApproved, "")
	s.logger.InfoContext(ctx, "identity verified",
		"user_id", userID.String(),
		"verification_id", rec.ID.String(),
	)

	return &models.VerifyResponse{
		Success:        true,
		Message:        "identity verified successfully",
		VerificationID: rec.ID.String(),
		UserVerified:   true,
	}, nil
}

// persistApproval commits the approved record and the subject flag in one
// transaction. The subject row is locked first so two concurrent attempts
// for the same subject cannot both commit.
func (s *Service) persistApproval(ctx context.Context, userID id.UserID, face *providers.FaceAnalysis, doc *providers.DocumentData, match *providers.FaceMatch, faceGender, docGender gender.Gender) (*models.Record, error) {
	_, span := s.tracer.Start(ctx, tracer.SpanPersist)

	now := s.now()
	rec := &models.Record{
		ID:              id.NewVerificationID(),
		UserID:          userID,
		Status:          models.StatusApproved,
		FaceConfidence:  face.Confidence,
		MatchConfidence: match.Confidence,
		FaceGender:      faceGender.String(),
		RGGender:        docGender.String(),
		RG:              models.RGDataFrom(doc.Fields),
		VerifiedAt:      &now,
		CreatedAt:       now,
	}

	err := s.store.RunInTx(ctx, func(stores store.TxStores) error {
		subject, err := stores.Subjects.LockByID(ctx, userID)
		if err != nil {
			return err
		}
		if subject.Verified {
			return sentinel.ErrConflict
		}
		if _, err := stores.Records.FindBySubjectAndStatus(ctx, userID, models.StatusApproved); err == nil {
			return sentinel.ErrConflict
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		if err := stores.Records.Create(ctx, rec); err != nil {
			return err
		}
		return stores.Subjects.MarkVerified(ctx, userID, rec.CreatedAt)
	})
	span.End(err)

	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, s.alreadyVerified()
		}
		return nil, s.internal("persist approval", err)
	}
	return rec, nil
}

// Status reports the subject's current verification state. Read-only.
func (s *Service) Status(ctx context.Context, userID id.UserID) (*models.StatusResponse, error) {
	s.metrics.RecordStatusRequest()

	subject, err := s.subjects.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, s.internal("find subject", err)
	}

	rec, err := s.store.FindLatestBySubject(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &models.StatusResponse{
				Verified: subject.Verified,
				Status:   models.StatusNotStarted,
				Message:  "verification not started",
			}, nil
		}
		return nil, s.internal("find latest record", err)
	}

	s.emitAudit(ctx, userID, audit.EventStatusAccessed, string(rec.Status), "")

	resp := &models.StatusResponse{
		Verified:         subject.Verified,
		Status:           string(rec.Status),
		VerificationDate: subject.VerificationDate,
	}
	switch rec.Status {
	case models.StatusApproved:
		resp.Message = "identity verified"
	case models.StatusRejected:
		resp.Message = "verification rejected: " + rec.Reason
	default:
		resp.Message = "verification in progress"
	}
	return resp, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeApproved
	case pkgerrors.HasCode(err, pkgerrors.CodeUpstream):
		return outcomeProviderError
	case pkgerrors.HasCode(err, pkgerrors.CodeValidation),
		pkgerrors.HasCode(err, pkgerrors.CodeGenderGate):
		return outcomeRejected
	case pkgerrors.HasCode(err, pkgerrors.CodeBadRequest):
		return outcomeAlreadyVerified
	default:
		return outcomeInternalError
	}
}

func (s *Service) alreadyVerified() error {
	s.metrics.RecordAttempt(outcomeAlreadyVerified)
	s.metrics.RecordGateFailure(gateIdempotency)
	return pkgerrors.New(pkgerrors.CodeBadRequest, "user already verified")
}

func (s *Service) gateFailure(gate string, err error) error {
	s.metrics.RecordGateFailure(gate)
	return err
}

// reject records a gate rejection and emits the audit trail. Rejections are
// not persisted as records; the attempt simply fails.
func (s *Service) reject(ctx context.Context, userID id.UserID, gate string, err error) error {
	s.metrics.RecordAttempt(outcomeRejected)
	s.metrics.RecordGateFailure(gate)
	s.emitAudit(ctx, userID, audit.EventVerificationRejected, outcomeRejected, gate)
	s.logger.InfoContext(ctx, "verification rejected",
		"user_id", userID.String(),
		"gate", gate,
		"reason", err.Error(),
	)
	return err
}

func (s *Service) providerFailure(ctx context.Context, userID id.UserID, err error) error {
	provider := providers.ProviderOf(err)
	category := providers.GetCategory(err)
	s.metrics.RecordAttempt(outcomeProviderError)
	s.metrics.RecordProviderError(provider, string(category))
	s.emitAudit(ctx, userID, audit.EventVerificationErrored, outcomeProviderError, provider)
	s.logger.ErrorContext(ctx, "provider call failed",
		"user_id", userID.String(),
		"provider", provider,
		"category", string(category),
		"error", err,
	)
	return pkgerrors.Wrap(err, pkgerrors.CodeUpstream, "identity provider unavailable")
}

func (s *Service) internal(op string, err error) error {
	s.metrics.RecordAttempt(outcomeInternalError)
	s.logger.Error("verification internal error", "op", op, "error", err)
	return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "verification failed")
}

// emitAudit is fail-open: a broken audit sink must not abort verification.
func (s *Service) emitAudit(ctx context.Context, userID id.UserID, action audit.AuditEvent, outcome, reason string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Timestamp: s.now(),
		UserID:    userID.String(),
		Action:    string(action),
		Outcome:   outcome,
		Reason:    reason,
	})
	if err != nil {
		s.logger.Warn("audit emit failed", "action", string(action), "error", err)
	}
}
