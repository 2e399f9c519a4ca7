package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Neo4jDatabase implements GraphDatabase on a Neo4j server
type Neo4jDatabase struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

func NewNeo4jDatabase(uri, username, password string, logger *zap.Logger) (*Neo4jDatabase, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	return &Neo4jDatabase{driver: driver, logger: logger}, nil
}

func (db *Neo4jDatabase) VerifyConnectivity(ctx context.Context) error {
	if err := db.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}
	return nil
}

func (db *Neo4jDatabase) Close(ctx context.Context) error {
	return db.driver.Close(ctx)
}

// InitializeSchema creates the uniqueness constraints the MERGE statements rely on
func (db *Neo4jDatabase) InitializeSchema(ctx context.Context) error {
	constraints := []string{
		"CREATE CONSTRAINT synset_id IF NOT EXISTS FOR (s:Synset) REQUIRE s.id IS UNIQUE",
		"CREATE CONSTRAINT word_id IF NOT EXISTS FOR (w:Word) REQUIRE w.id IS UNIQUE",
	}
	for _, c := range constraints {
		if _, err := db.ExecuteWrite(ctx, c, nil); err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	db.logger.Info("Successfully initialized Neo4j schema")
	return nil
}

func (db *Neo4jDatabase) ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return db.execute(ctx, query, params, neo4j.AccessModeRead)
}

func (db *Neo4jDatabase) ExecuteWrite(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return db.execute(ctx, query, params, neo4j.AccessModeWrite)
}

func (db *Neo4jDatabase) ExecuteReadSingle(ctx context.Context, query string, params map[string]any) (map[string]any, error) {
	return single(db.ExecuteRead(ctx, query, params))
}

func (db *Neo4jDatabase) ExecuteWriteSingle(ctx context.Context, query string, params map[string]any) (map[string]any, error) {
	return single(db.ExecuteWrite(ctx, query, params))
}

func (db *Neo4jDatabase) execute(ctx context.Context, query string, params map[string]any, mode neo4j.AccessMode) ([]map[string]any, error) {
	session := db.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode})
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		collected, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}

		records := make([]map[string]any, 0, len(collected))
		for _, record := range collected {
			converted := make(map[string]any, len(record.Keys))
			for key, value := range record.AsMap() {
				converted[key] = convertNeo4jValue(value)
			}
			records = append(records, converted)
		}
		return records, nil
	}

	var out any
	var err error
	if mode == neo4j.AccessModeRead {
		out, err = session.ExecuteRead(ctx, work)
	} else {
		out, err = session.ExecuteWrite(ctx, work)
	}
	if err != nil {
		db.logger.Error("Failed to execute Neo4j query",
			zap.String("query", query),
			zap.Bool("isWrite", mode == neo4j.AccessModeWrite),
			zap.Error(err))
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return out.([]map[string]any), nil
}

func convertNeo4jValue(value any) any {
	if node, ok := value.(neo4j.Node); ok {
		return node.Props
	}
	return value
}
