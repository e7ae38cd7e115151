// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bo3bdo/kms-server/internal/wire"
)

// overrideGroup and overrideSKU mirror ApplicationGroup/SKU but with
// string UUID fields, matching the catalog_overrides file format.
type overrideGroup struct {
	UUID         string `json:"uuid"`
	DisplayName  string `json:"display_name"`
	KMSPIDPrefix string `json:"kms_pid_prefix"`
	MinClients   int    `json:"min_clients"`
}

type overrideSKU struct {
	UUID        string `json:"uuid"`
	DisplayName string `json:"display_name"`
	Group       string `json:"group"`
}

type overrideFile struct {
	Groups []overrideGroup `json:"groups"`
	SKUs   []overrideSKU   `json:"skus"`
}

// LoadOverride reads a catalog_overrides file and builds a Catalog
// from it. Callers merge the result over Default() with Merge; a
// malformed file fails startup.
func LoadOverride(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read override file: %w", err)
	}

	var f overrideFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse override file %s: %w", path, err)
	}

	groups := make([]ApplicationGroup, 0, len(f.Groups))
	for _, g := range f.Groups {
		u, err := wire.ParseUUID(g.UUID)
		if err != nil {
			return nil, fmt.Errorf("catalog: override group %q: %w", g.DisplayName, err)
		}
		groups = append(groups, ApplicationGroup{
			UUID:         u,
			DisplayName:  g.DisplayName,
			KMSPIDPrefix: g.KMSPIDPrefix,
			MinClients:   g.MinClients,
		})
	}

	skus := make([]SKU, 0, len(f.SKUs))
	for _, s := range f.SKUs {
		u, err := wire.ParseUUID(s.UUID)
		if err != nil {
			return nil, fmt.Errorf("catalog: override sku %q: %w", s.DisplayName, err)
		}
		group, err := wire.ParseUUID(s.Group)
		if err != nil {
			return nil, fmt.Errorf("catalog: override sku %q group: %w", s.DisplayName, err)
		}
		skus = append(skus, SKU{UUID: u, DisplayName: s.DisplayName, Group: group})
	}

	return New(groups, skus), nil
}
