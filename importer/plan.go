package importer

import (
	"strings"

	"github.com/mmdatafocus/catalog_backend/models"
)

const fallbackNameField = "name"

type attrPlan struct {
	Field  string
	Column string
	Phone  bool
}

type linkPlan struct {
	Field        string
	Table        string
	OwnerColumn  string
	TargetColumn string
	TargetKind   models.EntityKind
}

// CommitPlan maps a kind's upload columns onto the catalog: which field holds
// the name, which fields overwrite attributes, which fields hold
// comma-separated link lists.
type CommitPlan struct {
	Kind      models.EntityKind
	NameField string
	Attrs     []attrPlan
	Links     []linkPlan
}

func PlanFor(kind models.EntityKind) CommitPlan {
	prefix := string(kind) + "_"
	plan := CommitPlan{Kind: kind, NameField: prefix + "name"}

	switch kind {
	case models.EntityKindBrand:
		plan.Attrs = []attrPlan{
			{Field: "brand_url", Column: models.CatalogColumnUrl},
			{Field: "brand_logo", Column: models.CatalogColumnLogo},
			{Field: "brand_source", Column: models.CatalogColumnSource},
		}
		plan.Links = []linkPlan{
			{Field: "brand_categories", Table: models.LinkTableBrandCategories, OwnerColumn: "brand_id", TargetColumn: "category_id", TargetKind: models.EntityKindCategory},
			{Field: "brand_sub_categories", Table: models.LinkTableBrandSubCategories, OwnerColumn: "brand_id", TargetColumn: "sub_category_id", TargetKind: models.EntityKindSubCategory},
		}
	case models.EntityKindDistributor:
		plan.Attrs = []attrPlan{
			{Field: "distributor_url", Column: models.CatalogColumnUrl},
			{Field: "distributor_source", Column: models.CatalogColumnSource},
		}
		plan.Links = []linkPlan{
			{Field: "distributor_suppliers", Table: models.LinkTableDistributorSuppliers, OwnerColumn: "distributor_id", TargetColumn: "supplier_id", TargetKind: models.EntityKindSupplier},
			{Field: "distributor_states", Table: models.LinkTableDistributorStates, OwnerColumn: "distributor_id", TargetColumn: "state_id", TargetKind: models.EntityKindState},
		}
	case models.EntityKindSupplier:
		plan.Attrs = []attrPlan{
			{Field: "supplier_url", Column: models.CatalogColumnUrl},
			{Field: "supplier_source", Column: models.CatalogColumnSource},
			{Field: "supplier_phone", Column: models.CatalogColumnPhone, Phone: true},
		}
	default:
		plan.Attrs = []attrPlan{
			{Field: prefix + "source", Column: models.CatalogColumnSource},
		}
	}
	return plan
}

// Name reads the primary name as submitted. ok is false when neither the
// kind's name field nor "name" holds a string.
func (p CommitPlan) Name(fields models.RowPayload) (string, bool) {
	if v, ok := fields.String(p.NameField); ok {
		return v, true
	}
	return fields.String(fallbackNameField)
}

// SetName writes name under whichever name field the row already uses.
func (p CommitPlan) SetName(fields models.RowPayload, name string) {
	if _, ok := fields[p.NameField]; !ok {
		if _, ok := fields[fallbackNameField]; ok {
			fields[fallbackNameField] = name
			return
		}
	}
	fields[p.NameField] = name
}

// linkedKinds lists the kinds a commit of this plan can create.
func (p CommitPlan) linkedKinds() []models.EntityKind {
	kinds := []models.EntityKind{p.Kind}
	for _, l := range p.Links {
		kinds = append(kinds, l.TargetKind)
	}
	return kinds
}

func trimName(name string) string {
	return strings.TrimSpace(name)
}
