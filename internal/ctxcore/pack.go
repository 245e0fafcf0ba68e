// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ctxcore

import (
	"time"

	"github.com/google/uuid"
)

// OrderingStrategy selects how a pack's items are sequenced at render time.
// PriorityThenTime is the only strategy the spec defines.
type OrderingStrategy string

const OrderingPriorityThenTime OrderingStrategy = "PriorityThenTime"

// DefaultBudgetTokens is the budget a new pack gets when none is specified.
const DefaultBudgetTokens = 128000

// RenderPolicy controls how a pack is rendered: its token budget and the
// ordering strategy applied to its items before budget enforcement.
type RenderPolicy struct {
	BudgetTokens int
	Ordering     OrderingStrategy
}

// DefaultRenderPolicy returns the policy a new pack receives.
func DefaultRenderPolicy() RenderPolicy {
	return RenderPolicy{BudgetTokens: DefaultBudgetTokens, Ordering: OrderingPriorityThenTime}
}

// Pack is a named, ordered, budget-capped bundle of artifacts.
type Pack struct {
	ID        string
	Name      string
	Policies  RenderPolicy
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPack builds a Pack with a fresh ID and created_at == updated_at.
func NewPack(name string, policies RenderPolicy) Pack {
	now := time.Now().UTC()
	return Pack{
		ID:        uuid.NewString(),
		Name:      name,
		Policies:  policies,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PackItem is the join of a pack and an artifact, carrying the priority and
// insertion time that determine render order.
type PackItem struct {
	PackID   string
	Artifact Artifact
	Priority int64
	AddedAt  time.Time
}
