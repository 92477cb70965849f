package chat

import "errors"

var (
	ErrThreadNotFound = errors.New("chat thread not found")
	ErrNotOwner       = errors.New("chat thread does not belong to caller")
	ErrThreadArchived = errors.New("cannot append to an archived thread")
)
