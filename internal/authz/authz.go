// Package authz decides which roles may perform which grade operations.
package authz

import (
	"github.com/Spok95/acadify-records/internal/apperr"
	"github.com/Spok95/acadify-records/internal/models"
)

type Action string

const (
	EncodeGrades     Action = "encode grades"
	ViewGrades       Action = "view grades"
	SubmitGrades     Action = "submit grades"
	ApproveGrades    Action = "approve grades"
	UnlockGrades     Action = "unlock grades"
	ManageSchedules  Action = "manage encoding schedules"
	ManageExceptions Action = "manage encoding exceptions"
	CheckEligibility Action = "check Dean's List eligibility"
	ComputeDeansList Action = "compute the Dean's List"
	ViewDeansList    Action = "view the Dean's List"
)

// Allowed reports whether role may perform action. Every role is matched explicitly.
func Allowed(role models.Role, action Action) bool {
	switch role {
	case models.RoleInstructor:
		switch action {
		case EncodeGrades, ViewGrades, SubmitGrades, ViewDeansList:
			return true
		}
		return false
	case models.RoleRegistrar:
		switch action {
		case EncodeGrades, ViewGrades, ApproveGrades, CheckEligibility, ComputeDeansList, ViewDeansList:
			return true
		}
		return false
	case models.RoleDean:
		switch action {
		case ViewGrades, CheckEligibility, ComputeDeansList, ViewDeansList:
			return true
		}
		return false
	case models.RoleAdmin:
		switch action {
		case ViewGrades, UnlockGrades, ManageSchedules, ManageExceptions, CheckEligibility, ComputeDeansList, ViewDeansList:
			return true
		}
		return false
	case models.RoleStudent:
		return action == CheckEligibility || action == ViewDeansList
	default:
		return false
	}
}

// Require returns an AuthorizationError when the actor may not perform action.
func Require(actor models.Actor, action Action) error {
	if actor == nil {
		return apperr.AuthorizationError{Role: "anonymous", Action: string(action)}
	}
	if !Allowed(actor.Role(), action) {
		return apperr.Forbidden(actor.Role(), string(action))
	}
	return nil
}
