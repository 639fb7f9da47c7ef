// MCP server exposing the dataset warehouse to agent tooling. It serves
// two tools over stdio: list_datasets (registry lookup) and count_records
// (warehouse counts honoring the countBy directive).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2" // ClickHouse driver
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/clinsight/clinserve/internal/analytics"
	"github.com/clinsight/clinserve/internal/config"
	"github.com/clinsight/clinserve/internal/db"
	"github.com/clinsight/clinserve/internal/models"
	"github.com/clinsight/clinserve/internal/observability"
	"github.com/clinsight/clinserve/internal/query"
)

type ListDatasetsInput struct{}

type ListDatasetsOutput struct {
	Datasets []models.Dataset `json:"datasets"`
}

type CountRecordsInput struct {
	DatasetID string `json:"dataset_id"`
	Table     string `json:"table,omitempty"`
	CountBy   string `json:"count_by,omitempty"`
}

type CountRecordsOutput struct {
	Result models.CountResult `json:"result"`
}

// warehouseServer holds tool dependencies.
type warehouseServer struct {
	pg     *db.Postgres
	counts analytics.CountService
	logger *zap.Logger
}

// ListDatasets returns every registered dataset.
func (s *warehouseServer) ListDatasets(ctx context.Context, req *mcp.CallToolRequest, input ListDatasetsInput) (*mcp.CallToolResult, ListDatasetsOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	datasets, err := s.pg.ListDatasets(ctx)
	if err != nil {
		return nil, ListDatasetsOutput{}, fmt.Errorf("list datasets: %w", err)
	}
	if datasets == nil {
		datasets = []models.Dataset{}
	}
	return nil, ListDatasetsOutput{Datasets: datasets}, nil
}

// CountRecords counts records in a dataset, honoring the same countBy
// directive the HTTP API accepts.
func (s *warehouseServer) CountRecords(ctx context.Context, req *mcp.CallToolRequest, input CountRecordsInput) (*mcp.CallToolResult, CountRecordsOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	table := input.Table
	if table == "" {
		table = "samples"
	}

	cfg, err := query.ParseCountBy(input.CountBy)
	if err != nil {
		return nil, CountRecordsOutput{}, err
	}

	count, err := s.counts.CountRecords(ctx, input.DatasetID, table, cfg)
	if err != nil {
		return nil, CountRecordsOutput{}, err
	}

	mode := "rows"
	if cfg != nil {
		mode = string(cfg.Mode)
	}
	return nil, CountRecordsOutput{Result: models.CountResult{
		DatasetID: input.DatasetID,
		Table:     table,
		Mode:      mode,
		Count:     count,
	}}, nil
}

func main() {
	cfg := config.Load()

	logger, err := observability.InitLogger("clinserve-mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	pg, err := db.InitPostgres(cfg.PostgresDSN, 10, 5, 30*time.Minute)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pg.Close()

	ch, err := db.InitClickHouse(cfg.ClickHouseDSN, db.PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		logger.Fatal("Failed to connect to ClickHouse", zap.Error(err))
	}
	defer ch.Close()

	// No Redis here: MCP traffic is sparse enough that caching counts
	// would only serve stale numbers to agents.
	counts := analytics.NewCounts(ch.DB, nil, 0, logger, observability.NewNoOpRegistry())

	ws := &warehouseServer{pg: pg, counts: counts, logger: logger}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "clinserve",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_datasets",
		Description: "List all registered clinical datasets",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	}, ws.ListDatasets)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "count_records",
		Description: "Count records in a clinical dataset. count_by accepts 'rows' or 'parent:<table>' to count distinct parent references",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"dataset_id": map[string]interface{}{
					"type":        "string",
					"description": "Dataset UUID",
				},
				"table": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"patients", "samples"},
					"description": "Logical table to count (defaults to samples)",
				},
				"count_by": map[string]interface{}{
					"type":        "string",
					"description": "Counting strategy: empty or 'rows' for row counts, 'parent:patients' for distinct parents",
				},
			},
			"required": []string{"dataset_id"},
		},
	}, ws.CountRecords)

	logger.Info("MCP Server running via stdio")

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
