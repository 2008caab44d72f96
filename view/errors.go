package view

import (
	"errors"
	"fmt"
)

var ErrRenderTargetMissing = errors.New("view: render target missing")

// RenderTargetMissingError is returned when a container was never
// registered. It only fails the call that hit it.
type RenderTargetMissingError struct {
	Container string
}

func (e *RenderTargetMissingError) Error() string {
	return fmt.Sprintf("%s: %q", ErrRenderTargetMissing.Error(), e.Container)
}

func (e *RenderTargetMissingError) Unwrap() error { return ErrRenderTargetMissing }
