package models

import "time"

type BrandCategory struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;size:64;not null" json:"business_id"`
	BrandId    int       `gorm:"uniqueIndex:idx_brand_category_pair,priority:1;not null" json:"brand_id"`
	CategoryId int       `gorm:"uniqueIndex:idx_brand_category_pair,priority:2;not null" json:"category_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type BrandSubCategory struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BusinessId    string    `gorm:"index;size:64;not null" json:"business_id"`
	BrandId       int       `gorm:"uniqueIndex:idx_brand_sub_category_pair,priority:1;not null" json:"brand_id"`
	SubCategoryId int       `gorm:"uniqueIndex:idx_brand_sub_category_pair,priority:2;not null" json:"sub_category_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type DistributorSupplier struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BusinessId    string    `gorm:"index;size:64;not null" json:"business_id"`
	DistributorId int       `gorm:"uniqueIndex:idx_distributor_supplier_pair,priority:1;not null" json:"distributor_id"`
	SupplierId    int       `gorm:"uniqueIndex:idx_distributor_supplier_pair,priority:2;not null" json:"supplier_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type DistributorState struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BusinessId    string    `gorm:"index;size:64;not null" json:"business_id"`
	DistributorId int       `gorm:"uniqueIndex:idx_distributor_state_pair,priority:1;not null" json:"distributor_id"`
	StateId       int       `gorm:"uniqueIndex:idx_distributor_state_pair,priority:2;not null" json:"state_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

const (
	LinkTableBrandCategories      = "brand_categories"
	LinkTableBrandSubCategories   = "brand_sub_categories"
	LinkTableDistributorSuppliers = "distributor_suppliers"
	LinkTableDistributorStates    = "distributor_states"
)

// LinkModel returns a pointer to the gorm model backing a link table.
func LinkModel(table string) (interface{}, bool) {
	switch table {
	case LinkTableBrandCategories:
		return &BrandCategory{}, true
	case LinkTableBrandSubCategories:
		return &BrandSubCategory{}, true
	case LinkTableDistributorSuppliers:
		return &DistributorSupplier{}, true
	case LinkTableDistributorStates:
		return &DistributorState{}, true
	}
	return nil, false
}
