package model

import "errors"

var (
	// ErrFileNotFound is returned when the model path does not exist.
	ErrFileNotFound = errors.New("model file not found")

	// ErrOpen is returned when the model path exists but cannot be opened.
	ErrOpen = errors.New("model file could not be opened")

	// ErrMalformedHeader is returned when the first line is not "<words> <dim>".
	ErrMalformedHeader = errors.New("malformed model header")
)
