package identity

import (
	"github.com/google/uuid"
)

type Operation string

const (
	OpBook             Operation = "book"
	OpCancel           Operation = "cancel"
	OpComplete         Operation = "complete"
	OpListOwn          Operation = "list_own"
	OpListTreatments   Operation = "list_treatments"
	OpExportTreatments Operation = "export_treatments"
	OpListAll          Operation = "list_all"
	OpDashboard        Operation = "dashboard"
	OpExportDoctor     Operation = "export_doctor"
	OpInspectJobs      Operation = "inspect_jobs"
	OpManageAccounts   Operation = "manage_accounts"
	OpReadReports      Operation = "read_reports"
)

type DenyReason string

const (
	DenyRoleMismatch DenyReason = "role_mismatch"
	DenyNotApproved  DenyReason = "not_approved"
	DenyBlocked      DenyReason = "blocked"
	DenyNotOwner     DenyReason = "not_owner"
)

type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision            { return Decision{Allowed: true} }
func deny(r DenyReason) Decision { return Decision{Reason: r} }

// requiredRoles maps each operation to the roles that may perform it.
var requiredRoles = map[Operation][]Role{
	OpBook:             {RolePatient},
	OpCancel:           {RolePatient},
	OpComplete:         {RoleDoctor},
	OpListOwn:          {RolePatient, RoleDoctor},
	OpListTreatments:   {RolePatient},
	OpExportTreatments: {RolePatient},
	OpListAll:          {RoleAdmin},
	OpDashboard:        {RoleAdmin},
	OpExportDoctor:     {RoleAdmin},
	OpInspectJobs:      {RoleAdmin},
	OpManageAccounts:   {RoleAdmin},
	OpReadReports:      {RoleAdmin},
}

// ownershipScoped lists the operations that act on a resource owned by a
// specific user, where the owner must be the caller.
var ownershipScoped = map[Operation]bool{
	OpCancel:           true,
	OpComplete:         true,
	OpListOwn:          true,
	OpListTreatments:   true,
	OpExportTreatments: true,
}

// Authorize decides whether principal may perform op against a resource
// owned by resourceOwner (uuid.Nil when the operation is not
// ownership-scoped). Rules are checked in order: role, account state,
// ownership. Admin accounts are provisioned rather than registered, so
// the approval/blocked checks apply only to patients and doctors.
func Authorize(p Principal, op Operation, resourceOwner uuid.UUID) Decision {
	roles, ok := requiredRoles[op]
	if !ok {
		return deny(DenyRoleMismatch)
	}

	matched := false
	for _, r := range roles {
		if p.Role == r {
			matched = true
			break
		}
	}
	if !matched {
		return deny(DenyRoleMismatch)
	}

	if p.Role == RolePatient || p.Role == RoleDoctor {
		if p.Blocked {
			return deny(DenyBlocked)
		}
		if !p.Approved {
			return deny(DenyNotApproved)
		}
	}

	if ownershipScoped[op] && resourceOwner != uuid.Nil && resourceOwner != p.ID {
		return deny(DenyNotOwner)
	}

	return allow()
}
