package api

import (
	"time"

	"github.com/zlovtnik/iead-sub002/auth"
)

// LoginRequest is the JSON body for POST /auth/login. Remember requests
// the extended session lifetime.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

// LoginResponse is returned from POST /auth/login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RefreshRequest is the optional JSON body for POST /auth/refresh.
type RefreshRequest struct {
	Remember bool `json:"remember,omitempty"`
}

// RefreshResponse is returned from POST /auth/refresh.
type RefreshResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionInfoResponse is returned from GET /auth/session.
type SessionInfoResponse struct {
	User      auth.User `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ChangePasswordRequest is the JSON body for POST /auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// MemberRecordsResponse is returned from GET /members/{memberID}/records.
// The record payload itself comes from the member-management service;
// this core only proves who was allowed through.
type MemberRecordsResponse struct {
	MemberID    string    `json:"member_id"`
	RequestedBy string    `json:"requested_by"`
	Role        auth.Role `json:"role"`
}

// CongregationOverviewResponse is returned from GET /congregation/overview.
type CongregationOverviewResponse struct {
	Viewer string    `json:"viewer"`
	Role   auth.Role `json:"role"`
}

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	Code      string    `json:"code"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}
