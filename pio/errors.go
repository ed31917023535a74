// Package pio reads PIO checkpoint files and writes copies of them extended
// with new cell arrays.
package pio

import (
	"github.com/pkg/errors"

	"github.com/robert-malhotra/go-pio/internal/binary"
	"github.com/robert-malhotra/go-pio/internal/header"
	"github.com/robert-malhotra/go-pio/internal/index"
)

// Common errors
var (
	ErrInvalidFormat        = header.ErrInvalidFormat
	ErrTruncated            = binary.ErrTruncated
	ErrNameTooLong          = index.ErrNameTooLong
	ErrMissingRequiredArray = errors.New("required array missing")
	ErrDestinationExists    = errors.New("destination already exists")
	ErrTemplateMismatch     = errors.New("template array does not match cell count")
	ErrLengthMismatch       = errors.New("value count does not match cell count")
	ErrArrayExists          = errors.New("array already exists")
	ErrClosed               = errors.New("file is closed")
)

// Well known arrays.
const (
	// CellCenterKey is required in every file; its length is the cell count.
	CellCenterKey = "cell_center_1"

	// DefaultTemplateKey is the preferred template record for new arrays.
	DefaultTemplateKey = "pres_0"
)
