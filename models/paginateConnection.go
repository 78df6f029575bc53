package models

import (
	"fmt"

	"github.com/mmdatafocus/catalog_backend/utils"
	"gorm.io/gorm"
)

// new pagination combined struct embedding + generic struct
type Cursor interface {
	GetCursor() string
}

type Edge[N Cursor] struct {
	Node   *N     `json:"node"`
	Cursor string `json:"cursor"`
}

// fetch results for pagination
func FetchPagePureCursor[T Cursor](dbCtx *gorm.DB,
	limit int,
	after *string,
	cursorColumn string,
	cmpOperator string,
) ([]Edge[T], *PageInfo, error) {

	nodes := make([]*T, 0)

	// order
	if cmpOperator == ">" {
		dbCtx = dbCtx.Order(cursorColumn)
	} else if cmpOperator == "<" {
		dbCtx = dbCtx.Order(cursorColumn + " DESC")
	} else {
		return nil, nil, fmt.Errorf("invalid cursor operator %q", cmpOperator)
	}

	// filter
	decodedCursor, err := DecodeCursor(after)
	if err != nil {
		return nil, nil, err
	}
	if decodedCursor != "" {
		dbCtx = dbCtx.Where(cursorColumn+" "+cmpOperator+" ?", decodedCursor)
	}

	// db query
	if err = dbCtx.Limit(limit + 1).Find(&nodes).Error; err != nil {
		return nil, nil, err
	}

	edges, pageInfo := buildEdges(nodes, limit, EncodeCursor)
	return edges, pageInfo, nil
}

// FetchPageCompositeCursor pages ascending by (valueColumn, idColumn). Nodes
// must report "value|id" from GetCursor; parseValue turns the decoded value back
// into the column's query type.
func FetchPageCompositeCursor[T Cursor](dbCtx *gorm.DB,
	limit int,
	after *string,
	valueColumn string,
	idColumn string,
	parseValue func(string) (interface{}, error),
) ([]Edge[T], *PageInfo, error) {

	nodes := make([]*T, 0)

	dbCtx = dbCtx.Order(valueColumn).Order(idColumn)

	value, id := DecodeCompositeCursor(after)
	if id != "" {
		v, err := parseValue(value)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid cursor: %w", err)
		}
		dbCtx = dbCtx.Where(
			fmt.Sprintf("(%s > ? OR (%s = ? AND %s > ?))", valueColumn, valueColumn, idColumn),
			v, v, id,
		)
	}

	if err := dbCtx.Limit(limit + 1).Find(&nodes).Error; err != nil {
		return nil, nil, err
	}

	edges, pageInfo := buildEdges(nodes, limit, EncodeCursor)
	return edges, pageInfo, nil
}

/*
	constructing edges & page info
*/
func buildEdges[T Cursor](nodes []*T, limit int, encode func(string) string) ([]Edge[T], *PageInfo) {
	count := 0
	hasNextPage := false
	edges := make([]Edge[T], 0, len(nodes))
	for _, node := range nodes {
		if count == limit {
			hasNextPage = true
		}
		if count < limit {
			var edge Edge[T]
			edge.Node = node
			edge.Cursor = encode((*node).GetCursor())
			edges = append(edges, edge)
			count++
		}
	}

	pageInfo := PageInfo{
		StartCursor: "",
		EndCursor:   "",
		HasNextPage: utils.NewFalse(),
	}
	if count > 0 {
		pageInfo = PageInfo{
			StartCursor: edges[0].Cursor,
			EndCursor:   edges[count-1].Cursor,
			HasNextPage: &hasNextPage,
		}
	}
	return edges, &pageInfo
}
