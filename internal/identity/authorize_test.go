package identity

import (
	"testing"

	"github.com/google/uuid"
)

func TestAuthorize(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	patient := Principal{ID: owner, Role: RolePatient, Approved: true}
	doctor := Principal{ID: owner, Role: RoleDoctor, Approved: true}
	admin := Principal{ID: uuid.New(), Role: RoleAdmin}

	tests := []struct {
		name       string
		principal  Principal
		op         Operation
		owner      uuid.UUID
		wantAllow  bool
		wantReason DenyReason
	}{
		{"patient books", patient, OpBook, uuid.Nil, true, ""},
		{"patient cancels own", patient, OpCancel, owner, true, ""},
		{"doctor completes own", doctor, OpComplete, owner, true, ""},
		{"admin dashboard", admin, OpDashboard, uuid.Nil, true, ""},
		{"admin manages accounts", admin, OpManageAccounts, uuid.Nil, true, ""},

		{"doctor cannot book", doctor, OpBook, uuid.Nil, false, DenyRoleMismatch},
		{"patient cannot complete", patient, OpComplete, owner, false, DenyRoleMismatch},
		{"patient cannot see dashboard", patient, OpDashboard, uuid.Nil, false, DenyRoleMismatch},
		{"doctor cannot inspect jobs", doctor, OpInspectJobs, uuid.Nil, false, DenyRoleMismatch},

		{
			"unapproved patient",
			Principal{ID: owner, Role: RolePatient},
			OpBook, uuid.Nil, false, DenyNotApproved,
		},
		{
			"blocked doctor",
			Principal{ID: owner, Role: RoleDoctor, Approved: true, Blocked: true},
			OpComplete, owner, false, DenyBlocked,
		},
		{
			// Blocked is checked before approval so the stronger state wins.
			"blocked and unapproved",
			Principal{ID: owner, Role: RolePatient, Blocked: true},
			OpBook, uuid.Nil, false, DenyBlocked,
		},

		{"patient cancels someone else's", patient, OpCancel, other, false, DenyNotOwner},
		{"doctor completes someone else's", doctor, OpComplete, other, false, DenyNotOwner},

		{"unknown operation", admin, Operation("bogus"), uuid.Nil, false, DenyRoleMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Authorize(tt.principal, tt.op, tt.owner)
			if got.Allowed != tt.wantAllow {
				t.Fatalf("Allowed = %v, want %v", got.Allowed, tt.wantAllow)
			}
			if !got.Allowed && got.Reason != tt.wantReason {
				t.Fatalf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestAuthorizeRoleCheckedBeforeAccountState(t *testing.T) {
	// A blocked doctor calling a patient operation is a role mismatch, not
	// a blocked denial: the role gate comes first.
	p := Principal{ID: uuid.New(), Role: RoleDoctor, Approved: true, Blocked: true}
	got := Authorize(p, OpBook, uuid.Nil)
	if got.Allowed {
		t.Fatal("expected deny")
	}
	if got.Reason != DenyRoleMismatch {
		t.Fatalf("Reason = %q, want %q", got.Reason, DenyRoleMismatch)
	}
}

func TestAdminSkipsAccountStateChecks(t *testing.T) {
	// Admin accounts are provisioned, not registered, so approval state
	// does not apply to them.
	p := Principal{ID: uuid.New(), Role: RoleAdmin, Approved: false}
	if got := Authorize(p, OpListAll, uuid.Nil); !got.Allowed {
		t.Fatalf("expected allow, got deny %q", got.Reason)
	}
}
