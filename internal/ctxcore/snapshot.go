// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ctxcore

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is an immutable record proving what was rendered: the render
// fingerprint and the payload digest that backs it.
type Snapshot struct {
	ID          string
	Label       *string
	RenderHash  string
	PayloadHash string
	CreatedAt   time.Time
}

// NewSnapshot builds a Snapshot with a fresh ID and the current timestamp.
func NewSnapshot(renderHash, payloadHash string, label *string) Snapshot {
	return Snapshot{
		ID:          uuid.NewString(),
		Label:       label,
		RenderHash:  renderHash,
		PayloadHash: payloadHash,
		CreatedAt:   time.Now().UTC(),
	}
}
