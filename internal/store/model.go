// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

// Package store implements the optional activation-store persistence
// layer over gorm.io/gorm, with sqlite or postgres as the pluggable
// backend driver.
package store

import "time"

// ClientRecord is the gorm model for one activation record: cmid alone
// is the primary key, so a CMID has one record whatever its
// application group; ring_1..ring_6 hold the
// FILETIME values of the last six requests, oldest dropped first.
type ClientRecord struct {
	CMID             string `gorm:"column:cmid;primaryKey"`
	AppGroup         string `gorm:"column:app_group"`
	SKU              string `gorm:"column:sku"`
	EPID             string `gorm:"column:epid"`
	FirstRequestTime time.Time `gorm:"column:first_request_time"`
	LastRequestTime  time.Time `gorm:"column:last_request_time"`
	NRequests        int    `gorm:"column:n_requests"`
	Ring1            *int64 `gorm:"column:ring_1"`
	Ring2            *int64 `gorm:"column:ring_2"`
	Ring3            *int64 `gorm:"column:ring_3"`
	Ring4            *int64 `gorm:"column:ring_4"`
	Ring5            *int64 `gorm:"column:ring_5"`
	Ring6            *int64 `gorm:"column:ring_6"`
}

// TableName pins the table name to "clients".
func (ClientRecord) TableName() string {
	return "clients"
}

// pushRing shifts ft into Ring1, dropping whatever was in Ring6.
func (r *ClientRecord) pushRing(ft int64) {
	r.Ring6 = r.Ring5
	r.Ring5 = r.Ring4
	r.Ring4 = r.Ring3
	r.Ring3 = r.Ring2
	r.Ring2 = r.Ring1
	v := ft
	r.Ring1 = &v
}
