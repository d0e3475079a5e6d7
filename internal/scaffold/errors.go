package scaffold

import "errors"

var (
	ErrTemplateCopy = errors.New("failed to copy project template")
	ErrInstall      = errors.New("package install failed")
)
