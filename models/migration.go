package models

import (
	"context"
	"log"

	"github.com/mmdatafocus/catalog_backend/config"
	"github.com/mmdatafocus/catalog_backend/utils"
	"gorm.io/gorm"
)

func MigrateTable() {
	if err := Migrate(config.GetDB()); err != nil {
		log.Fatal(err)
	}
}

// Migrate creates or alters every table the importer owns.
func Migrate(db *gorm.DB) error {
	ctx := utils.SetSkipTenantScopeInContext(context.Background(), true)
	return db.WithContext(ctx).AutoMigrate(
		&CatalogEntity{},
		&BrandCategory{}, &BrandSubCategory{}, &DistributorSupplier{}, &DistributorState{},
		&ImportRun{}, &StagedRow{},
	)
}
