package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks client errors: bad collection names, missing text.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownCollection is returned for names outside the configured set.
	ErrUnknownCollection = fmt.Errorf("%w: unknown collection", ErrInvalidInput)
	// ErrArchive reports an archive that cannot be opened or extracted.
	ErrArchive = errors.New("archive error")
	// ErrNoSupportedFiles is returned when an archive holds no ingestible files.
	ErrNoSupportedFiles = fmt.Errorf("%w: no supported files found in the uploaded folder", ErrArchive)
)
