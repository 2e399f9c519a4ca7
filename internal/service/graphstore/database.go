package graphstore

import (
	"context"
	"fmt"
)

// GraphDatabase is the Cypher surface shared by the embedded and server backends.
// Records come back as column name -> value with nodes flattened to their properties.
type GraphDatabase interface {
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error

	ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	ExecuteWrite(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	ExecuteReadSingle(ctx context.Context, query string, params map[string]any) (map[string]any, error)
	ExecuteWriteSingle(ctx context.Context, query string, params map[string]any) (map[string]any, error)
}

func single(records []map[string]any, err error) (map[string]any, error) {
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no records returned")
	}
	if len(records) > 1 {
		return nil, fmt.Errorf("expected single record, got %d", len(records))
	}
	return records[0], nil
}

// toInt64 converts the integer types the drivers return
func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}
