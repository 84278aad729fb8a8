package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"verifid/internal/platform/middleware"
	"verifid/internal/verification/handler/mocks"
	"verifid/internal/verification/models"
	id "verifid/pkg/domain"
	dErrors "verifid/pkg/domain-errors"
	"verifid/pkg/httputil"
)

const (
	testUserID = "44444444-4444-4444-4444-444444444444"
	validToken = "valid-token"
)

// stubValidator accepts exactly one token and maps it to the test subject.
type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*middleware.TokenClaims, error) {
	if token != validToken {
		return nil, errors.New("invalid token")
	}
	return &middleware.TokenClaims{UserID: testUserID}, nil
}

type HandlerSuite struct {
	suite.Suite
	router      http.Handler
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	userID      id.UserID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	uid, err := id.ParseUserID(testUserID)
	s.Require().NoError(err)
	s.userID = uid

	h := New(s.mockService, logger)
	r := chi.NewRouter()
	r.Route("/api/verification", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(stubValidator{}, logger))
			h.Register(r)
		})
		h.RegisterDiagnostics(r)
	})
	s.router = r
}

func (s *HandlerSuite) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func verifyBody() string {
	return `{"selfie_image":"c2VsZmll","rg_front_image":"ZnJvbnQ="}`
}

func (s *HandlerSuite) TestVerifyIdentityApproved() {
	s.mockService.EXPECT().
		Verify(gomock.Any(), s.userID, gomock.Any()).
		Return(&models.VerifyResponse{
			Success:        true,
			Message:        "identity verified successfully",
			VerificationID: "55555555-5555-5555-5555-555555555555",
			UserVerified:   true,
		}, nil)

	rec := s.do(http.MethodPost, "/api/verification/verify-identity", validToken, verifyBody())
	s.Equal(http.StatusOK, rec.Code)

	var resp models.VerifyResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Success)
	s.True(resp.UserVerified)
	s.NotEmpty(resp.VerificationID)
}

func (s *HandlerSuite) TestVerifyIdentityMissingToken() {
	rec := s.do(http.MethodPost, "/api/verification/verify-identity", "", verifyBody())
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestVerifyIdentityInvalidToken() {
	rec := s.do(http.MethodPost, "/api/verification/verify-identity", "expired", verifyBody())
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestVerifyIdentityMalformedBody() {
	rec := s.do(http.MethodPost, "/api/verification/verify-identity", validToken, "{not json")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestVerifyIdentityValidationFailure() {
	s.mockService.EXPECT().
		Verify(gomock.Any(), s.userID, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeValidation, "selfie does not match document photo"))

	rec := s.do(http.MethodPost, "/api/verification/verify-identity", validToken, verifyBody())
	s.Equal(http.StatusBadRequest, rec.Code)

	var resp httputil.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(string(dErrors.CodeValidation), resp.Error)
}

func (s *HandlerSuite) TestVerifyIdentityGenderGate() {
	s.mockService.EXPECT().
		Verify(gomock.Any(), s.userID, gomock.Any()).
		Return(nil, dErrors.NewWithDetails(dErrors.CodeGenderGate, "gender verification failed",
			map[string]any{"face_gender": "male", "rg_gender": "female"}))

	rec := s.do(http.MethodPost, "/api/verification/verify-identity", validToken, verifyBody())
	s.Equal(http.StatusForbidden, rec.Code)

	var resp httputil.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("male", resp.Details["face_gender"])
	s.Equal("female", resp.Details["rg_gender"])
}

func (s *HandlerSuite) TestVerifyIdentityUnknownSubject() {
	s.mockService.EXPECT().
		Verify(gomock.Any(), s.userID, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "user not found"))

	rec := s.do(http.MethodPost, "/api/verification/verify-identity", validToken, verifyBody())
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestVerifyIdentityProviderFailure() {
	s.mockService.EXPECT().
		Verify(gomock.Any(), s.userID, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeUpstream, "identity provider unavailable"))

	rec := s.do(http.MethodPost, "/api/verification/verify-identity", validToken, verifyBody())
	s.Equal(http.StatusInternalServerError, rec.Code)
}

func (s *HandlerSuite) TestVerificationStatus() {
	verifiedAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s.mockService.EXPECT().
		Status(gomock.Any(), s.userID).
		Return(&models.StatusResponse{
			Verified:         true,
			Status:           "approved",
			VerificationDate: &verifiedAt,
			Message:          "identity verified",
		}, nil)

	rec := s.do(http.MethodGet, "/api/verification/verification-status", validToken, "")
	s.Equal(http.StatusOK, rec.Code)

	var resp models.StatusResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Verified)
	s.Equal("approved", resp.Status)
}

func (s *HandlerSuite) TestVerificationStatusRequiresAuth() {
	rec := s.do(http.MethodGet, "/api/verification/verification-status", "", "")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestTestAPIsOpenEndpoint() {
	s.mockService.EXPECT().
		ProbeProviders(gomock.Any()).
		Return(&models.ProbeResponse{
			Status: "ok",
			Providers: map[string]models.ProbeResult{
				"face_api": {Status: "ok", Provider: "face_api", Details: "provider reachable"},
				"ocr_api":  {Status: "ok", Provider: "ocr_api", Details: "provider reachable"},
			},
		}, nil)

	// No Authorization header: the diagnostics endpoint is operational.
	rec := s.do(http.MethodGet, "/api/verification/test-apis", "", "")
	s.Equal(http.StatusOK, rec.Code)

	var resp models.ProbeResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("ok", resp.Status)
	s.Equal("ok", resp.Providers["face_api"].Status)
	s.Equal("ocr_api", resp.Providers["ocr_api"].Provider)
}
