package authorization

import (
	"context"
	"errors"
)

const (
	ObjectAccreditation = "accreditation"

	ActionAccreditationList = "accreditation.list"
	ActionAccreditationView = "accreditation.view"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

type Service interface {
	// Authorize checks whether role may perform action on object.
	Authorize(ctx context.Context, role string, object string, action string) error
}
