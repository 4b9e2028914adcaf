package editorlink

import "errors"

var (
	ErrLinkClosed         = errors.New("editor link is closed")
	ErrLinkAlreadyRunning = errors.New("editor link is already running")
)
