package errors

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrNilUser              = errors.New("user is nil")
	ErrTeamNotFound         = errors.New("team not found")
	ErrAlreadyTeamMember    = errors.New("user is already a team member")
	ErrNilNotification      = errors.New("notification is nil")
	ErrIncorrectCredentials = errors.New("incorrect login or password")
	ErrTokenInvalid         = errors.New("token is invalid")
	ErrTokenConflict        = errors.New("refresh token already in use")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInternal             = errors.New("internal error")
)
