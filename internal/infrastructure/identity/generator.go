// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package identity allocates document identifiers.
package identity

import (
	"fmt"

	"github.com/akamensky/base58"
	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/port"
)

// Format selects the textual form of generated ids
type Format string

// Format constants
const (
	// FormatUUID produces canonical random UUID strings
	FormatUUID Format = "uuid"
	// FormatBase58 produces compact, time ordered ids from UUIDv7 bytes
	FormatBase58 Format = "base58"
)

// Generator implements port.IDGenerator
type Generator struct {
	format Format
}

// Ensure Generator implements the IDGenerator interface
var _ port.IDGenerator = (*Generator)(nil)

// NewGenerator creates a generator for the given format
func NewGenerator(format Format) (*Generator, error) {
	switch format {
	case FormatUUID, FormatBase58:
		return &Generator{format: format}, nil
	case "":
		return &Generator{format: FormatBase58}, nil
	default:
		return nil, fmt.Errorf("unsupported id format %q", format)
	}
}

// NewID returns a new unique id
func (g *Generator) NewID() string {
	if g.format == FormatUUID {
		return uuid.NewString()
	}
	id, err := uuid.NewV7()
	if err != nil {
		// V7 only fails when the random source does
		id = uuid.New()
	}
	return base58.Encode(id[:])
}
