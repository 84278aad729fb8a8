package models

import "time"

// StatusNotStarted is reported for subjects with no verification records.
// It is a response-level value, never persisted.
const StatusNotStarted = "not_started"

// VerifyResponse is returned on a successful verification.
type VerifyResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	VerificationID string `json:"verification_id"`
	UserVerified   bool   `json:"user_verified"`
}

// StatusResponse reports the subject's current verification state.
type StatusResponse struct {
	Verified         bool       `json:"verified"`
	Status           string     `json:"status"`
	VerificationDate *time.Time `json:"verification_date"`
	Message          string     `json:"message"`
}

// ProbeResult is the health outcome for one provider. Status is "ok" or
// "error"; Details carries the error text or a reachability note.
type ProbeResult struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Details  string `json:"details"`
}

// ProbeResponse reports provider reachability for the diagnostics endpoint.
type ProbeResponse struct {
	Status    string                 `json:"status"`
	Providers map[string]ProbeResult `json:"providers"`
}
