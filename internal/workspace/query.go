package workspace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/databricks/databricks-sdk-go/service/sql"
	"go.uber.org/zap"

	"github.com/benniehaelen/databricks-mcp-server/pkg/types"
)

const (
	// statementPollInterval is how often the executor polls a statement
	// that is still pending or running after the initial wait.
	statementPollInterval = time.Second

	// The warehouse accepts an initial synchronous wait between 5 and 50
	// seconds; longer budgets are covered by polling.
	sdkWaitTimeoutMinSec = 5
	sdkWaitTimeoutMaxSec = 50
)

// ExecuteSQL submits a single SQL statement to the indicated warehouse
// (falling back to the configured default) and waits for a terminal status
// up to the configured timeout. The statement is neither retried nor
// canceled on timeout; a statement the warehouse is still running when the
// budget expires keeps running server-side.
func (c *Client) ExecuteSQL(ctx context.Context, query, warehouseID string) (*types.QueryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.NewToolError(types.ErrorKindInvalidArguments, "invalid argument %q: query must not be empty", "query")
	}

	if warehouseID == "" {
		warehouseID = c.defaultWarehouseID
	}
	if warehouseID == "" {
		return nil, types.NewToolError(
			types.ErrorKindInvalidArguments,
			"invalid argument %q: no warehouse_id provided and no default warehouse is configured", "warehouse_id",
		)
	}

	deadline := time.Now().Add(c.queryTimeout)

	c.log.Debug("executing SQL statement", zap.String("warehouse_id", warehouseID))

	resp, err := c.stmt.ExecuteStatement(ctx, sql.ExecuteStatementRequest{
		Statement:     query,
		WarehouseId:   warehouseID,
		WaitTimeout:   initialWaitTimeout(c.queryTimeout),
		OnWaitTimeout: sql.ExecuteStatementRequestOnWaitTimeoutContinue,
	})
	if err != nil {
		return nil, types.NewToolError(types.ErrorKindQueryExecution, "failed to execute statement: %v", err)
	}

	for !isTerminalState(resp) {
		if time.Now().After(deadline) {
			return nil, types.NewToolError(
				types.ErrorKindQueryTimeout,
				"statement %s did not complete within %s", resp.StatementId, c.queryTimeout,
			)
		}
		select {
		case <-ctx.Done():
			return nil, types.NewToolError(types.ErrorKindQueryExecution, "statement wait interrupted: %v", ctx.Err())
		case <-time.After(statementPollInterval):
		}
		resp, err = c.stmt.GetStatement(ctx, resp.StatementId)
		if err != nil {
			return nil, types.NewToolError(types.ErrorKindQueryExecution, "failed to poll statement status: %v", err)
		}
	}

	state := resp.Status.State
	if state != sql.StatementStateSucceeded {
		msg := fmt.Sprintf("statement finished in state %s", state)
		if resp.Status.Error != nil && resp.Status.Error.Message != "" {
			msg = resp.Status.Error.Message
		}
		return nil, types.NewToolError(types.ErrorKindQueryExecution, "%s", msg)
	}

	return buildQueryResult(resp), nil
}

// initialWaitTimeout clamps the configured budget into the synchronous wait
// window the statement execution API accepts.
func initialWaitTimeout(budget time.Duration) string {
	sec := int(budget.Seconds())
	if sec < sdkWaitTimeoutMinSec {
		sec = sdkWaitTimeoutMinSec
	}
	if sec > sdkWaitTimeoutMaxSec {
		sec = sdkWaitTimeoutMaxSec
	}
	return fmt.Sprintf("%ds", sec)
}

func isTerminalState(resp *sql.StatementResponse) bool {
	if resp.Status == nil {
		return false
	}
	switch resp.Status.State {
	case sql.StatementStateSucceeded, sql.StatementStateFailed,
		sql.StatementStateCanceled, sql.StatementStateClosed:
		return true
	default:
		return false
	}
}

// buildQueryResult converts the warehouse's columnar manifest and data
// array into the row-oriented QueryResult shape. Empty result sets are
// legal and return zero rows with the declared column list when available.
func buildQueryResult(resp *sql.StatementResponse) *types.QueryResult {
	var columns []string
	if resp.Manifest != nil && resp.Manifest.Schema != nil {
		columns = make([]string, 0, len(resp.Manifest.Schema.Columns))
		for _, col := range resp.Manifest.Schema.Columns {
			columns = append(columns, col.Name)
		}
	} else {
		columns = []string{}
	}

	rows := []map[string]any{}
	if resp.Result != nil {
		for _, raw := range resp.Result.DataArray {
			row := make(map[string]any, len(columns))
			for i, name := range columns {
				if i < len(raw) {
					row[name] = raw[i]
				}
			}
			rows = append(rows, row)
		}
	}

	return &types.QueryResult{
		Status:   "success",
		Columns:  columns,
		Rows:     rows,
		RowCount: len(rows),
	}
}
