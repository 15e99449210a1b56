package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MemberRecords handles GET /members/{memberID}/records. The member's
// actual records (giving, attendance, volunteer assignments) live in the
// member-management service; this endpoint is the authorization boundary
// it sits behind, so the response carries the resolved principal.
func (a *API) MemberRecords(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())
	writeJSON(w, http.StatusOK, MemberRecordsResponse{
		MemberID:    chi.URLParam(r, "memberID"),
		RequestedBy: user.ID,
		Role:        user.Role,
	})
}

// CongregationOverview handles GET /congregation/overview, reachable at
// Pastor rank and above.
func (a *API) CongregationOverview(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())
	writeJSON(w, http.StatusOK, CongregationOverviewResponse{
		Viewer: user.ID,
		Role:   user.Role,
	})
}
