package materializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
)

// AthenaAPI is the subset of the Athena client the runner uses.
type AthenaAPI interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

// Runner executes SQL in one Athena workgroup and database and blocks until
// each query reaches a terminal state.
type Runner struct {
	Client    AthenaAPI
	Workgroup string
	Database  string
	OutputS3  string // s3://bucket/prefix/; workgroup default when empty
	Logger    *slog.Logger
	// Poll is the status polling interval; one second when zero.
	Poll time.Duration
}

// QueryError reports a query that ended FAILED or CANCELLED.
type QueryError struct {
	QueryID string
	State   types.QueryExecutionState
	Reason  string
}

func (e *QueryError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("athena: query %s %s", e.QueryID, e.State)
	}
	return fmt.Sprintf("athena: query %s %s: %s", e.QueryID, e.State, e.Reason)
}

// ExecAndWait starts sql and polls until it finishes. A succeeded query's
// execution is returned; a failed or cancelled one is a *QueryError.
func (r *Runner) ExecAndWait(ctx context.Context, sql string) (*types.QueryExecution, error) {
	qid, err := r.start(ctx, sql)
	if err != nil {
		return nil, err
	}
	r.log().Debug("athena: query started", "qid", qid)

	poll := r.Poll
	if poll <= 0 {
		poll = time.Second
	}
	tick := time.NewTicker(poll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tick.C:
		}
		exec, err := r.status(ctx, qid)
		if err != nil {
			return nil, err
		}
		switch exec.Status.State {
		case types.QueryExecutionStateSucceeded:
			r.logFinished(qid, exec.Statistics)
			return exec, nil
		case types.QueryExecutionStateFailed, types.QueryExecutionStateCancelled:
			qerr := &QueryError{QueryID: qid, State: exec.Status.State}
			if exec.Status.StateChangeReason != nil {
				qerr.Reason = *exec.Status.StateChangeReason
			}
			return nil, qerr
		}
	}
}

func (r *Runner) start(ctx context.Context, sql string) (string, error) {
	in := &athena.StartQueryExecutionInput{
		QueryString:           aws.String(sql),
		QueryExecutionContext: &types.QueryExecutionContext{Database: aws.String(r.Database)},
		WorkGroup:             aws.String(r.Workgroup),
	}
	if r.OutputS3 != "" {
		in.ResultConfiguration = &types.ResultConfiguration{OutputLocation: aws.String(r.OutputS3)}
	}
	out, err := r.Client.StartQueryExecution(ctx, in)
	if err != nil {
		return "", fmt.Errorf("start query: %w", err)
	}
	if out.QueryExecutionId == nil {
		return "", errors.New("start query: no execution id")
	}
	return *out.QueryExecutionId, nil
}

func (r *Runner) status(ctx context.Context, qid string) (*types.QueryExecution, error) {
	out, err := r.Client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{QueryExecutionId: aws.String(qid)})
	if err != nil {
		return nil, fmt.Errorf("get query execution %s: %w", qid, err)
	}
	if out.QueryExecution == nil || out.QueryExecution.Status == nil {
		return nil, fmt.Errorf("get query execution %s: empty status", qid)
	}
	return out.QueryExecution, nil
}

func (r *Runner) logFinished(qid string, stats *types.QueryExecutionStatistics) {
	var scannedMB, execSec float64
	if stats != nil {
		scannedMB = float64(aws.ToInt64(stats.DataScannedInBytes)) / (1 << 20)
		execSec = float64(aws.ToInt64(stats.EngineExecutionTimeInMillis)) / 1000
	}
	r.log().Info("athena: query succeeded", "qid", qid, "scanned_mb", scannedMB, "exec_seconds", execSec)
}

// QueryInt runs sql and reads the first column of the first data row.
func (r *Runner) QueryInt(ctx context.Context, sql string) (int64, error) {
	exec, err := r.ExecAndWait(ctx, sql)
	if err != nil {
		return 0, err
	}
	gr, err := r.Client.GetQueryResults(ctx, &athena.GetQueryResultsInput{
		QueryExecutionId: exec.QueryExecutionId,
	})
	if err != nil {
		return 0, fmt.Errorf("get results: %w", err)
	}
	// row 0 is the header
	if gr.ResultSet == nil || len(gr.ResultSet.Rows) < 2 || len(gr.ResultSet.Rows[1].Data) < 1 || gr.ResultSet.Rows[1].Data[0].VarCharValue == nil {
		return 0, errors.New("unexpected single-value result shape")
	}
	var n int64
	if _, err := fmt.Sscan(*gr.ResultSet.Rows[1].Data[0].VarCharValue, &n); err != nil {
		return 0, fmt.Errorf("parse result: %w", err)
	}
	return n, nil
}

func (r *Runner) log() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
