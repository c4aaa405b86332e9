package models

import (
	"fmt"
	"io/fs"
)

// ValidationError represents invalid user input
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// MissingFileError reports that a source dataset does not exist at the resolved path.
type MissingFileError struct {
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("dataset not found: %s", e.Path)
}

func (e *MissingFileError) Unwrap() error {
	if e.Err == nil {
		return fs.ErrNotExist
	}
	return e.Err
}

// IsTransient returns false; the file is static input
func (e *MissingFileError) IsTransient() bool {
	return false
}

// ParseError reports columns required for timestamp derivation, or a named
// measurement, that are absent from a dataset.
type ParseError struct {
	Path    string
	Column  string
	Message string
}

func (e *ParseError) Error() string {
	switch {
	case e.Path != "" && e.Column != "":
		return fmt.Sprintf("%s: column %q: %s", e.Path, e.Column, e.Message)
	case e.Column != "":
		return fmt.Sprintf("column %q: %s", e.Column, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// IsTransient returns false as parse errors are permanent
func (e *ParseError) IsTransient() bool {
	return false
}
