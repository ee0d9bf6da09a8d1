package service

import (
	"strings"

	"github.com/streamshare/streamshare/internal/domain/subscription"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/types"
)

func errStatusChanged(entity, id string, expected any) error {
	return ierr.NewErrorf("%s status changed during operation", entity).
		WithHint("Status changed during operation, please try again").
		WithReportableDetails(map[string]any{
			"entity":          entity,
			"id":              id,
			"expected_status": expected,
		}).
		Mark(ierr.ErrVersionConflict)
}

func errAlreadyPaid(entity, id string) error {
	return ierr.NewErrorf("%s %s is already paid", entity, id).
		WithHintf("This %s has already been paid", entity).
		WithReportableDetails(map[string]any{
			"entity": entity,
			"id":     id,
		}).
		Mark(ierr.ErrAlreadyPaid)
}

func errPermissionDenied(action string) error {
	return ierr.NewErrorf("not allowed to %s", action).
		WithHintf("You are not allowed to %s", action).
		Mark(ierr.ErrPermissionDenied)
}

// canActOn reports whether the actor owns the participant or administers its account
func canActOn(actor types.Actor, participant *subscription.Participant, accountID string) bool {
	return participant.IsOwnedBy(actor.UserID) || actor.HasAuthorityOver(accountID)
}

// requireReasonForOthers enforces that an admin acting on someone else's resource explains why
func requireReasonForOthers(actor types.Actor, participant *subscription.Participant, reason string) error {
	if participant.IsOwnedBy(actor.UserID) || actor.IsSystem() {
		return nil
	}
	if strings.TrimSpace(reason) == "" {
		return ierr.NewError("reason is required").
			WithHint("A reason is required when acting on behalf of another participant").
			Mark(ierr.ErrValidation)
	}
	return nil
}
