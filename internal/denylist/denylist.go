// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package denylist blocks artifact ingestion by path pattern, so secrets
// that live on disk (.env files, private keys) never enter a pack at all.
package denylist

import "github.com/bmatcuk/doublestar/v4"

// Denylist holds a set of glob patterns checked against candidate source
// paths before ingestion. Patterns use doublestar syntax, so "**" correctly
// matches across any number of path segments -- including zero, unlike the
// single-segment "**" handling in plain filepath.Match.
type Denylist struct {
	patterns []string
}

// New returns a Denylist built from patterns. Patterns that fail to compile
// are dropped rather than causing construction to fail, since a denylist
// entry typed wrong should not take down ingestion entirely.
func New(patterns []string) *Denylist {
	valid := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if doublestar.ValidatePattern(p) {
			valid = append(valid, p)
		}
	}
	return &Denylist{patterns: valid}
}

// IsDenied reports whether path matches any configured pattern.
func (d *Denylist) IsDenied(path string) bool {
	for _, p := range d.patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// MatchingPattern returns the first pattern that matches path, for use in
// denial error messages.
func (d *Denylist) MatchingPattern(path string) (string, bool) {
	for _, p := range d.patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return p, true
		}
	}
	return "", false
}
