package domain

import "errors"

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrCommentNotFound      = errors.New("comment not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrNotCommentAuthor     = errors.New("not the comment author")
)
