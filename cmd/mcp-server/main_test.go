package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinsight/clinserve/internal/analytics"
	"github.com/clinsight/clinserve/internal/query"
)

func TestCountRecords_DefaultsToSamples(t *testing.T) {
	mock := &analytics.MockCountService{Count: 5}
	ws := &warehouseServer{counts: mock, logger: zap.NewNop()}

	_, out, err := ws.CountRecords(context.Background(), nil, CountRecordsInput{DatasetID: "ds-1"})
	require.NoError(t, err)
	assert.Equal(t, "samples", mock.LastTable)
	assert.Nil(t, mock.LastCfg)
	assert.Equal(t, int64(5), out.Result.Count)
	assert.Equal(t, "rows", out.Result.Mode)
}

func TestCountRecords_ParentDirective(t *testing.T) {
	mock := &analytics.MockCountService{Count: 2}
	ws := &warehouseServer{counts: mock, logger: zap.NewNop()}

	_, out, err := ws.CountRecords(context.Background(), nil, CountRecordsInput{
		DatasetID: "ds-1",
		CountBy:   "parent:patients",
	})
	require.NoError(t, err)
	require.NotNil(t, mock.LastCfg)
	assert.Equal(t, query.CountModeParent, mock.LastCfg.Mode)
	assert.Equal(t, "parent", out.Result.Mode)
}

func TestCountRecords_InvalidCountBy(t *testing.T) {
	mock := &analytics.MockCountService{}
	ws := &warehouseServer{counts: mock, logger: zap.NewNop()}

	_, _, err := ws.CountRecords(context.Background(), nil, CountRecordsInput{
		DatasetID: "ds-1",
		CountBy:   "foo",
	})
	require.Error(t, err)
	assert.Equal(t, "Invalid countBy parameter", err.Error())
	assert.Empty(t, mock.LastTable)
}
