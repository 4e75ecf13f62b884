package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/databricks/databricks-sdk-go/service/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benniehaelen/databricks-mcp-server/pkg/types"
)

func succeededResponse(columns []string, rows [][]string) *sql.StatementResponse {
	cols := make([]sql.ColumnInfo, len(columns))
	for i, name := range columns {
		cols[i] = sql.ColumnInfo{Name: name}
	}
	return &sql.StatementResponse{
		StatementId: "stmt-1",
		Status:      &sql.StatementStatus{State: sql.StatementStateSucceeded},
		Manifest:    &sql.ResultManifest{Schema: &sql.ResultSchema{Columns: cols}},
		Result:      &sql.ResultData{DataArray: rows},
	}
}

func stateResponse(state sql.StatementState) *sql.StatementResponse {
	return &sql.StatementResponse{
		StatementId: "stmt-1",
		Status:      &sql.StatementStatus{State: state},
	}
}

func TestExecuteSQL(t *testing.T) {
	t.Parallel()

	t.Run("returns row-oriented results in column order", func(t *testing.T) {
		stmt := &fakeStatements{responses: []*sql.StatementResponse{
			succeededResponse([]string{"id", "name"}, [][]string{
				{"1", "alpha"},
				{"2", "beta"},
			}),
		}}
		c := newTestClient(&fakeMetadata{}, stmt)

		out, err := c.ExecuteSQL(context.Background(), "SELECT id, name FROM t", "")
		require.NoError(t, err)
		assert.Equal(t, "success", out.Status)
		assert.Equal(t, []string{"id", "name"}, out.Columns)
		assert.Equal(t, 2, out.RowCount)
		require.Len(t, out.Rows, 2)
		assert.Equal(t, "alpha", out.Rows[0]["name"])
		assert.Equal(t, "2", out.Rows[1]["id"])
		assert.Equal(t, 1, stmt.executeCalls)
	})

	t.Run("single value query", func(t *testing.T) {
		stmt := &fakeStatements{responses: []*sql.StatementResponse{
			succeededResponse([]string{"1"}, [][]string{{"1"}}),
		}}
		c := newTestClient(&fakeMetadata{}, stmt)

		out, err := c.ExecuteSQL(context.Background(), "SELECT 1", "")
		require.NoError(t, err)
		assert.Equal(t, 1, out.RowCount)
		assert.Equal(t, "1", out.Rows[0]["1"])
	})

	t.Run("empty result set keeps declared columns", func(t *testing.T) {
		stmt := &fakeStatements{responses: []*sql.StatementResponse{
			succeededResponse([]string{"id"}, nil),
		}}
		c := newTestClient(&fakeMetadata{}, stmt)

		out, err := c.ExecuteSQL(context.Background(), "SELECT id FROM t WHERE 1=0", "")
		require.NoError(t, err)
		assert.Equal(t, "success", out.Status)
		assert.Equal(t, []string{"id"}, out.Columns)
		assert.Equal(t, 0, out.RowCount)
		assert.NotNil(t, out.Rows)
	})

	t.Run("blank query is rejected without execution", func(t *testing.T) {
		stmt := &fakeStatements{}
		c := newTestClient(&fakeMetadata{}, stmt)

		_, err := c.ExecuteSQL(context.Background(), "   \n\t", "")
		require.Error(t, err)
		assert.Equal(t, types.ErrorKindInvalidArguments, types.AsToolError(err).Kind)
		assert.Equal(t, 0, stmt.executeCalls)
	})

	t.Run("no warehouse available is rejected", func(t *testing.T) {
		stmt := &fakeStatements{}
		c := NewWithAPIs(&fakeMetadata{}, stmt, "", 30*time.Second, nil)

		_, err := c.ExecuteSQL(context.Background(), "SELECT 1", "")
		require.Error(t, err)
		te := types.AsToolError(err)
		assert.Equal(t, types.ErrorKindInvalidArguments, te.Kind)
		assert.Contains(t, te.Message, "warehouse_id")
		assert.Equal(t, 0, stmt.executeCalls)
	})

	t.Run("failed statement surfaces the warehouse message verbatim", func(t *testing.T) {
		failed := stateResponse(sql.StatementStateFailed)
		failed.Status.Error = &sql.ServiceError{Message: "TABLE_OR_VIEW_NOT_FOUND: t"}
		stmt := &fakeStatements{responses: []*sql.StatementResponse{failed}}
		c := newTestClient(&fakeMetadata{}, stmt)

		_, err := c.ExecuteSQL(context.Background(), "SELECT * FROM t", "")
		require.Error(t, err)
		te := types.AsToolError(err)
		assert.Equal(t, types.ErrorKindQueryExecution, te.Kind)
		assert.Equal(t, "TABLE_OR_VIEW_NOT_FOUND: t", te.Message)
	})

	t.Run("canceled statement without message reports the state", func(t *testing.T) {
		stmt := &fakeStatements{responses: []*sql.StatementResponse{
			stateResponse(sql.StatementStateCanceled),
		}}
		c := newTestClient(&fakeMetadata{}, stmt)

		_, err := c.ExecuteSQL(context.Background(), "SELECT 1", "")
		require.Error(t, err)
		te := types.AsToolError(err)
		assert.Equal(t, types.ErrorKindQueryExecution, te.Kind)
		assert.Contains(t, te.Message, "CANCELED")
	})

	t.Run("polls a running statement to completion", func(t *testing.T) {
		stmt := &fakeStatements{responses: []*sql.StatementResponse{
			stateResponse(sql.StatementStateRunning),
			succeededResponse([]string{"n"}, [][]string{{"42"}}),
		}}
		c := newTestClient(&fakeMetadata{}, stmt)

		out, err := c.ExecuteSQL(context.Background(), "SELECT n FROM slow", "")
		require.NoError(t, err)
		assert.Equal(t, 1, out.RowCount)
		assert.GreaterOrEqual(t, stmt.pollCalls, 1)
	})

	t.Run("statement still running at the deadline times out", func(t *testing.T) {
		stmt := &fakeStatements{
			responses:    []*sql.StatementResponse{stateResponse(sql.StatementStatePending)},
			executeDelay: 20 * time.Millisecond,
		}
		c := NewWithAPIs(&fakeMetadata{}, stmt, "wh-default", time.Millisecond, nil)

		_, err := c.ExecuteSQL(context.Background(), "SELECT * FROM huge", "")
		require.Error(t, err)
		assert.Equal(t, types.ErrorKindQueryTimeout, types.AsToolError(err).Kind)
	})

	t.Run("explicit warehouse overrides the default", func(t *testing.T) {
		var gotWarehouse string
		stmt := &recordingStatements{onExecute: func(req sql.ExecuteStatementRequest) {
			gotWarehouse = req.WarehouseId
		}}
		c := newTestClient(&fakeMetadata{}, stmt)

		_, err := c.ExecuteSQL(context.Background(), "SELECT 1", "wh-override")
		require.NoError(t, err)
		assert.Equal(t, "wh-override", gotWarehouse)
	})
}

// recordingStatements captures the outgoing request and always succeeds.
type recordingStatements struct {
	onExecute func(req sql.ExecuteStatementRequest)
}

func (r *recordingStatements) ExecuteStatement(_ context.Context, req sql.ExecuteStatementRequest) (*sql.StatementResponse, error) {
	if r.onExecute != nil {
		r.onExecute(req)
	}
	return succeededResponse([]string{"1"}, [][]string{{"1"}}), nil
}

func (r *recordingStatements) GetStatement(_ context.Context, _ string) (*sql.StatementResponse, error) {
	return succeededResponse([]string{"1"}, [][]string{{"1"}}), nil
}

func TestInitialWaitTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		budget time.Duration
		want   string
	}{
		{time.Second, "5s"},
		{30 * time.Second, "30s"},
		{50 * time.Second, "50s"},
		{5 * time.Minute, "50s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, initialWaitTimeout(tt.budget), "budget %s", tt.budget)
	}
}
