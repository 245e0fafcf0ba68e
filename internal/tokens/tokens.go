// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tokens estimates how many tokens a piece of text would consume,
// used to enforce pack render budgets against a real model vocabulary
// rather than a guessed ratio.
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator counts tokens with the cl100k_base BPE encoding, the
// vocabulary shared by GPT-3.5/GPT-4-era models. Using the actual encoder
// instead of a byte- or word-count heuristic keeps the render budget
// accurate for the kind of natural-language and code mixture a context
// pack typically contains.
type Estimator struct {
	enc *tiktoken.Tiktoken
}

// NewEstimator loads the cl100k_base encoding and returns the estimator
// used throughout the render pipeline. Panics if the encoding cannot be
// loaded, since cl100k_base is a fixed, always-available vocabulary and a
// failure here means the process environment is broken, not that the
// input was bad.
func NewEstimator() *Estimator {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		panic(fmt.Sprintf("tokens: load cl100k_base encoding: %v", err))
	}
	return &Estimator{enc: enc}
}

// Estimate returns the exact cl100k_base token count for text.
func (e *Estimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(e.enc.Encode(text, nil, nil))
}

// EstimateBatch estimates each text in texts independently.
func (e *Estimator) EstimateBatch(texts []string) []int {
	counts := make([]int, len(texts))
	for i, t := range texts {
		counts[i] = e.Estimate(t)
	}
	return counts
}
