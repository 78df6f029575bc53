package models

import (
	"strconv"
	"time"
)

// CatalogEntity is one canonical record of a kind. Name is unique per
// business and kind; the unique index backs conflict detection on insert.
type CatalogEntity struct {
	ID         int        `gorm:"primary_key" json:"id"`
	BusinessId string     `gorm:"uniqueIndex:idx_catalog_entity_name,priority:1;size:64;not null" json:"business_id"`
	Kind       EntityKind `gorm:"uniqueIndex:idx_catalog_entity_name,priority:2;size:20;not null" json:"kind"`
	Name       string     `gorm:"uniqueIndex:idx_catalog_entity_name,priority:3;size:255;not null" json:"name"`
	Url        string     `gorm:"size:512" json:"url"`
	Logo       string     `gorm:"size:512" json:"logo"`
	Source     string     `gorm:"size:255" json:"source"`
	Phone      string     `gorm:"size:32" json:"phone"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// attribute columns an import may overwrite
const (
	CatalogColumnUrl    = "url"
	CatalogColumnLogo   = "logo"
	CatalogColumnSource = "source"
	CatalogColumnPhone  = "phone"
)

func (e CatalogEntity) GetName() string {
	return e.Name
}

func (e CatalogEntity) GetBusinessId() string {
	return e.BusinessId
}

func (e CatalogEntity) GetCursor() string {
	return strconv.Itoa(e.ID)
}

// SetAttribute writes one of the CatalogColumn* attributes by column name.
func (e *CatalogEntity) SetAttribute(column string, value string) {
	switch column {
	case CatalogColumnUrl:
		e.Url = value
	case CatalogColumnLogo:
		e.Logo = value
	case CatalogColumnSource:
		e.Source = value
	case CatalogColumnPhone:
		e.Phone = value
	}
}
