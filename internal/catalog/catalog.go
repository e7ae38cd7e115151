// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

// Package catalog holds the static, read-only product catalog: the
// application-group table (Windows, Windows Server, Office, ...) and
// the SKU table that maps a specific product UUID onto its
// application group. The catalog is built once at process start and
// shared read-only across all sessions; every lookup is O(1) keyed by
// the canonical UUID bytes.
package catalog

import "github.com/bo3bdo/kms-server/internal/wire"

// ApplicationGroup describes a KMS host identity family (Windows,
// Windows Server, Office, ...).
type ApplicationGroup struct {
	UUID         wire.UUID
	DisplayName  string
	KMSPIDPrefix string // exactly 5 decimal digits
	MinClients   int
}

// SKU describes one product edition (a specific GVLK target).
type SKU struct {
	UUID        wire.UUID
	DisplayName string
	Group       wire.UUID
}

// Catalog is an immutable, read-only product table. The zero value is
// not usable; construct one with New or use Default.
type Catalog struct {
	groups map[wire.UUID]ApplicationGroup
	skus   map[wire.UUID]SKU
}

// New builds a Catalog from explicit group and SKU lists. Entries with
// a duplicate UUID overwrite earlier ones, last write wins, mirroring
// how a catalog-override file is merged over the compiled-in table.
func New(groups []ApplicationGroup, skus []SKU) *Catalog {
	c := &Catalog{
		groups: make(map[wire.UUID]ApplicationGroup, len(groups)),
		skus:   make(map[wire.UUID]SKU, len(skus)),
	}
	for _, g := range groups {
		c.groups[g.UUID] = g
	}
	for _, s := range skus {
		c.skus[s.UUID] = s
	}
	return c
}

// Merge returns a new Catalog with override's entries layered over c;
// override wins on UUID collision. c is never mutated.
func (c *Catalog) Merge(override *Catalog) *Catalog {
	merged := &Catalog{
		groups: make(map[wire.UUID]ApplicationGroup, len(c.groups)+len(override.groups)),
		skus:   make(map[wire.UUID]SKU, len(c.skus)+len(override.skus)),
	}
	for k, v := range c.groups {
		merged.groups[k] = v
	}
	for k, v := range override.groups {
		merged.groups[k] = v
	}
	for k, v := range c.skus {
		merged.skus[k] = v
	}
	for k, v := range override.skus {
		merged.skus[k] = v
	}
	return merged
}

// AppName returns the display name for an application-group UUID, or
// its lower-hex fallback if unknown. found reports whether the lookup
// hit the catalog (false means the caller should emit a CatalogMiss
// debug event, never a warning).
func (c *Catalog) AppName(app wire.UUID) (name string, found bool) {
	if g, ok := c.groups[app]; ok {
		return g.DisplayName, true
	}
	return hexFallback(app), false
}

// SKUName returns the display name for a SKU UUID, or its lower-hex
// fallback if unknown.
func (c *Catalog) SKUName(sku wire.UUID) (name string, found bool) {
	if s, ok := c.skus[sku]; ok {
		return s.DisplayName, true
	}
	return hexFallback(sku), false
}

// MinClients returns the minimum activated-machine count required for
// app, or 0 if the group is unknown (no group minimum then applies).
func (c *Catalog) MinClients(app wire.UUID) int {
	if g, ok := c.groups[app]; ok {
		return g.MinClients
	}
	return 0
}

// PIDPrefix returns the 5-digit KMS PID prefix for app, and whether
// the group was found.
func (c *Catalog) PIDPrefix(app wire.UUID) (prefix string, found bool) {
	if g, ok := c.groups[app]; ok {
		return g.KMSPIDPrefix, true
	}
	return "00000", false
}

// Group looks up an application group by UUID.
func (c *Catalog) Group(app wire.UUID) (ApplicationGroup, bool) {
	g, ok := c.groups[app]
	return g, ok
}

// SKU looks up a SKU by UUID.
func (c *Catalog) SKU(sku wire.UUID) (SKU, bool) {
	s, ok := c.skus[sku]
	return s, ok
}

func hexFallback(u wire.UUID) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, 32)
	for _, b := range u {
		out = append(out, hexdigits[b>>4], hexdigits[b&0x0f])
	}
	return string(out)
}
