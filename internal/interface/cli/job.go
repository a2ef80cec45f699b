package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/doc-summarizer/internal/core/parsing"
)

// JobStatusAction はジョブのステータスを1回取得して表示する
func JobStatusAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	return printJobStatus(ctx, appCtx.Container.SummaryService, cmd.String("id"))
}

// JobPollAction はジョブが終端状態になるまでポーリングし、結果を表示する
func JobPollAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	return pollJob(ctx, appCtx.Container.SummaryService, cmd.String("id"))
}

type jobWatcher interface {
	JobStatus(ctx context.Context, jobID string) (parsing.StatusRecord, error)
	WatchJob(ctx context.Context, jobID string) (parsing.PollOutcome, error)
}

type jobStatusView struct {
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	RawStatus string `json:"rawStatus"`
	Error     string `json:"error,omitempty"`
}

type pollOutcomeView struct {
	JobID   string `json:"jobId"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
	Polls   int    `json:"polls"`
}

func printJobStatus(ctx context.Context, svc jobWatcher, jobID string) error {
	if jobID == "" {
		return parsing.ErrMissingJobID
	}

	record, err := svc.JobStatus(ctx, jobID)
	if err != nil {
		return fmt.Errorf("ステータスの取得に失敗: %w", err)
	}

	return printJSON(jobStatusView{
		JobID:     jobID,
		Status:    string(record.Status),
		RawStatus: record.RawStatus,
		Error:     record.Error.OrEmpty(),
	})
}

func pollJob(ctx context.Context, svc jobWatcher, jobID string) error {
	if jobID == "" {
		return parsing.ErrMissingJobID
	}

	outcome, err := svc.WatchJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("ポーリングに失敗: %w", err)
	}

	return printJSON(pollOutcomeView{
		JobID:   jobID,
		Outcome: outcome.Kind.String(),
		Detail:  outcome.Detail,
		Polls:   outcome.Polls,
	})
}
