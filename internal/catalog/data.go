// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package catalog

import "github.com/bo3bdo/kms-server/internal/wire"

// Application-group UUIDs. These identify the KMS host identity that a
// family of SKUs activates against.
var (
	windowsGroup       = wire.MustParseUUID("55c92734-d682-4d71-983e-d6ec3f16059f")
	windowsServerGroup = wire.MustParseUUID("d9f24ecd-3d72-465a-90c7-21c72438b43f")
	officeGroup        = wire.MustParseUUID("ed9b0e9b-ba5f-4055-b4eb-9a356a838109")
)

var defaultGroups = []ApplicationGroup{
	{UUID: windowsGroup, DisplayName: "Windows", KMSPIDPrefix: "03612", MinClients: 25},
	{UUID: windowsServerGroup, DisplayName: "Windows Server", KMSPIDPrefix: "06401", MinClients: 5},
	{UUID: officeGroup, DisplayName: "Office", KMSPIDPrefix: "02955", MinClients: 5},
}

var defaultSKUs = []SKU{
	{UUID: wire.MustParseUUID("2de67392-b7a7-462a-b1ca-108dd189f588"), DisplayName: "Windows 11 Pro", Group: windowsGroup},
	{UUID: wire.MustParseUUID("2b9b00a3-fd18-4f32-b3ae-aeeaf4fa0c93"), DisplayName: "Windows 10 Pro", Group: windowsGroup},
	{UUID: wire.MustParseUUID("b2f86b2e-0d26-4345-8561-7dd47ebb75de"), DisplayName: "Windows 11 Enterprise", Group: windowsGroup},
	{UUID: wire.MustParseUUID("aa6ab0fb-d1a8-4bd9-8c11-5f0a3a8f6ea3"), DisplayName: "Windows Server 2022 Standard", Group: windowsServerGroup},
	{UUID: wire.MustParseUUID("c7de3c9a-7c0a-4e2f-8e2c-6cf1f4b7d4a1"), DisplayName: "Windows Server 2022 Datacenter", Group: windowsServerGroup},
	{UUID: wire.MustParseUUID("d450596f-894d-49e0-966a-fd39ed4c4c64"), DisplayName: "Office 2016 Professional Plus", Group: officeGroup},
	{UUID: wire.MustParseUUID("056baf66-19b7-48ae-9f31-0a6a30d7f990"), DisplayName: "Office 2021 Professional Plus", Group: officeGroup},
}

// Default returns the compiled-in product catalog.
func Default() *Catalog {
	return New(defaultGroups, defaultSKUs)
}
