// Package idgen provides the outbound.IDGenerator adapter.
package idgen

import (
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"github.com/google/uuid"
)

// UUID implements outbound.IDGenerator with random (v4) identifiers.
type UUID struct{}

// New creates the uuid-backed id generator.
func New() outbound.IDGenerator { return UUID{} }

// New implements outbound.IDGenerator.
func (UUID) New() string { return uuid.New().String() }
