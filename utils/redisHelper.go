package utils

import (
	"context"
	"reflect"

	"github.com/mmdatafocus/catalog_backend/config"
)

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis */

// TypeList:$business_id:$scope
func listKey[T any](businessId string, scope string) string {
	key := GetTypeName[T]() + "List:" + businessId
	if scope != "" {
		key += ":" + scope
	}
	return key
}

// store a list for CatalogCacheTTL; a zero ttl means caching is off
func StoreRedisList[T any](ctx context.Context, obj []*T, businessId string, scope string) error {
	ttl := config.CatalogCacheTTL()
	if ttl <= 0 {
		return nil
	}
	return config.SetRedisObject(ctx, listKey[T](businessId, scope), obj, ttl)
}

// retrieve a list.
// returns nil, nil when missing or caching is off
func RetrieveRedisList[T any](ctx context.Context, businessId string, scope string) ([]*T, error) {
	if config.CatalogCacheTTL() <= 0 {
		return nil, nil
	}
	var result []*T
	exists, err := config.GetRedisObject(ctx, listKey[T](businessId, scope), &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// clear list, TypeList:$business_id:$scope
func RemoveRedisList[T any](ctx context.Context, businessId string, scopes ...string) error {
	keys := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		keys = append(keys, listKey[T](businessId, scope))
	}
	return config.RemoveRedisKey(ctx, keys...)
}
