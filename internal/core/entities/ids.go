package entities

import (
	"github.com/google/uuid"
	"github.com/zeusync/engine/internal/core/stringid"
)

// EntityID is process-unique and never reused.
type EntityID uuid.UUID

func NewEntityID() EntityID         { return EntityID(uuid.New()) }
func (id EntityID) IsValid() bool   { return uuid.UUID(id) != uuid.Nil }
func (id EntityID) String() string  { return uuid.UUID(id).String() }
func (id EntityID) UUID() uuid.UUID { return uuid.UUID(id) }

// ComponentID is process-unique and never reused.
type ComponentID uuid.UUID

func NewComponentID() ComponentID      { return ComponentID(uuid.New()) }
func (id ComponentID) IsValid() bool   { return uuid.UUID(id) != uuid.Nil }
func (id ComponentID) String() string  { return uuid.UUID(id).String() }
func (id ComponentID) UUID() uuid.UUID { return uuid.UUID(id) }

// ComponentKind tags a concrete component type. Systems switch on it instead
// of probing with type assertions.
type ComponentKind stringid.ID

func NewComponentKind(name string) ComponentKind { return ComponentKind(stringid.New(name)) }
func (k ComponentKind) IsValid() bool            { return stringid.ID(k).IsValid() }
func (k ComponentKind) String() string           { return stringid.ID(k).String() }

// SystemKind identifies an entity system type; an entity holds at most one per kind.
type SystemKind stringid.ID

func NewSystemKind(name string) SystemKind { return SystemKind(stringid.New(name)) }
func (k SystemKind) IsValid() bool         { return stringid.ID(k).IsValid() }
func (k SystemKind) String() string        { return stringid.ID(k).String() }
