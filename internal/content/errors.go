package content

import "errors"

var (
	ErrPostNotFound      = errors.New("content: post not found")
	ErrProjectNotFound   = errors.New("content: project not found")
	ErrDuplicateSlug     = errors.New("content: duplicate slug")
	ErrUnknownProjectRef = errors.New("content: post references unknown project")
	ErrMissingLayout     = errors.New("content: front matter layout is required")
	ErrMissingTitle      = errors.New("content: front matter title is required")
	ErrMissingDate       = errors.New("content: front matter date is required")
	ErrNoContent         = errors.New("content: no posts found")
)
