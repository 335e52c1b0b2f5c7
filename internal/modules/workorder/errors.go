package workorder

import (
	"fmt"

	"propertyhub/internal/domain"
)

const maxOrderNumberAttempts = 3

func transitionError(from, to domain.WorkOrderStatus) error {
	return &domain.InvalidTransitionError{Entity: "work order", From: string(from), To: string(to)}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, domain.ErrValidation)...)
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, domain.ErrForbidden)...)
}
