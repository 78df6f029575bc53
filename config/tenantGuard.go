package config

import (
	"context"
	"reflect"
	"strings"

	"github.com/mmdatafocus/catalog_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantScopePlugin scopes queries, updates and deletes to the request's
// business_id when the model has a business_id column and the statement does
// not already filter on it. Creates get business_id filled in when empty.
//
// Raw SQL is not scoped.
type TenantScopePlugin struct{}

func NewTenantScopePlugin() *TenantScopePlugin { return &TenantScopePlugin{} }

func (p *TenantScopePlugin) Name() string { return "tenant_scope" }

func (p *TenantScopePlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("tenant_scope:query", tenantScopeWhere); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("tenant_scope:row", tenantScopeWhere); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("tenant_scope:update", tenantScopeWhere); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("tenant_scope:delete", tenantScopeWhere); err != nil {
		return err
	}
	return db.Callback().Create().Before("gorm:create").Register("tenant_scope:create", tenantScopeCreate)
}

func scopedBusinessId(db *gorm.DB) string {
	if db == nil || db.Statement == nil || db.Statement.Context == nil || db.Statement.Schema == nil {
		return ""
	}
	ctx := db.Statement.Context
	if skipTenantScope(ctx) {
		return ""
	}
	if db.Statement.Schema.LookUpField("business_id") == nil {
		return ""
	}
	return businessIdFromContext(ctx)
}

func tenantScopeWhere(db *gorm.DB) {
	businessID := scopedBusinessId(db)
	if businessID == "" {
		return
	}
	if whereHasBusinessID(db.Statement.Clauses["WHERE"]) {
		return
	}
	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "business_id"},
				Value:  businessID,
			},
		},
	})
}

func tenantScopeCreate(db *gorm.DB) {
	businessID := scopedBusinessId(db)
	if businessID == "" {
		return
	}
	field := db.Statement.Schema.LookUpField("business_id")
	rv := db.Statement.ReflectValue
	if !rv.IsValid() || rv.Kind() != reflect.Struct {
		return
	}
	if _, isZero := field.ValueOf(db.Statement.Context, rv); isZero {
		_ = field.Set(db.Statement.Context, rv, businessID)
	}
}

func businessIdFromContext(ctx context.Context) string {
	if v, ok := appctx.GetString(ctx, appctx.ContextKeyBusinessId); ok {
		return v
	}
	return ""
}

func skipTenantScope(ctx context.Context) bool {
	v, ok := appctx.GetBool(ctx, appctx.ContextKeySkipTenantScope)
	return ok && v
}

func whereHasBusinessID(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasBusinessID(e) {
			return true
		}
	}
	return false
}

func exprHasBusinessID(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsBusinessID(v.Column)
	case clause.IN:
		return colIsBusinessID(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasBusinessID(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		return strings.Contains(strings.ToLower(v.SQL), "business_id")
	case clause.NamedExpr:
		return strings.Contains(strings.ToLower(v.SQL), "business_id")
	default:
		return false
	}
}

func colIsBusinessID(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "business_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "business_id")
	default:
		return false
	}
}
