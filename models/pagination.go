package models

import (
	"encoding/base64"
	"strings"
)

type PageInfo struct {
	StartCursor string `json:"startCursor"`
	EndCursor   string `json:"endCursor"`
	HasNextPage *bool  `json:"hasNextPage,omitempty"`
}

func DecodeCursor(cursor *string) (string, error) {
	decodedCursor := ""
	if cursor != nil {
		b, err := base64.StdEncoding.DecodeString(*cursor)
		if err != nil {
			return decodedCursor, err
		}
		decodedCursor = string(b)
	}
	return decodedCursor, nil
}

// DecodeCompositeCursor splits a "value|id" cursor. Anything malformed decodes
// to empty parts, which callers treat as the first page.
func DecodeCompositeCursor(cursor *string) (string, string) {
	if cursor == nil || *cursor == "" {
		return "", ""
	}

	decoded, err := base64.StdEncoding.DecodeString(*cursor)
	if err != nil {
		return "", ""
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 2 || parts[1] == "" {
		return "", ""
	}

	return parts[0], parts[1]
}

func EncodeCursor(cursor string) string {
	return base64.StdEncoding.EncodeToString([]byte(cursor))
}

func EncodeCompositeCursor(value string, id string) string {
	return base64.StdEncoding.EncodeToString([]byte(value + "|" + id))
}
