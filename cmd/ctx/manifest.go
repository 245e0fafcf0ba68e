// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// manifest is the bulk pack.apply input: an ordered list of sources to
// ingest, each with the same options "pack add" accepts individually.
//
//	items:
//	  - uri: "file:README.md"
//	    priority: 10
//	  - uri: "md_dir:docs"
//	    max_files: 20
//	    recursive: true
type manifest struct {
	Items []manifestItem `yaml:"items"`
}

type manifestItem struct {
	URI       string   `yaml:"uri"`
	Priority  int64    `yaml:"priority"`
	MaxFiles  int      `yaml:"max_files"`
	Recursive bool     `yaml:"recursive"`
	Exclude   []string `yaml:"exclude"`
}

func parseManifest(data []byte) (manifest, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return manifest{}, fmt.Errorf("manifest: %w", err)
	}
	if len(m.Items) == 0 {
		return manifest{}, fmt.Errorf("manifest: no items listed")
	}
	for i, item := range m.Items {
		if item.URI == "" {
			return manifest{}, fmt.Errorf("manifest: item %d has no uri", i)
		}
	}
	return m, nil
}
