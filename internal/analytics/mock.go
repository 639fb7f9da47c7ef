package analytics

import (
	"context"

	"github.com/clinsight/clinserve/internal/query"
)

// MockCountService is a CountService stub for handler tests.
type MockCountService struct {
	Count     int64
	Err       error
	LastTable string
	LastCfg   *query.CountByConfig
}

func (m *MockCountService) CountRecords(ctx context.Context, datasetID, table string, cfg *query.CountByConfig) (int64, error) {
	m.LastTable = table
	m.LastCfg = cfg
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Count, nil
}
