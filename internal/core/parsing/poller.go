package parsing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/mo"
)

const (
	// DefaultPollInterval はステータス取得の間隔
	DefaultPollInterval = 5 * time.Second

	// DefaultPollTimeout はポーリング全体の上限時間
	DefaultPollTimeout = 600 * time.Second
)

// Poller はジョブが終端状態になるか期限に達するまでステータスを取得し続ける
type Poller struct {
	reader   StatusReader
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger
}

// PollerOption は Poller のオプション設定
type PollerOption func(*Poller)

// WithPollInterval はポーリング間隔を上書きする
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithPollTimeout はポーリングの期限を上書きする
func WithPollTimeout(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPollLogger は Poller にロガーを設定する
func WithPollLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = logger
	}
}

// WithPollClock は現在時刻と待機処理を差し替える (テスト用)
func WithPollClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) PollerOption {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// NewPoller は新しい Poller を作成する
func NewPoller(reader StatusReader, opts ...PollerOption) *Poller {
	p := &Poller{
		reader:   reader,
		interval: DefaultPollInterval,
		timeout:  DefaultPollTimeout,
		now:      time.Now,
		sleep:    sleepContext,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Poll は job が終端状態になるまでステータスを取得する。
// 期限超過は OutcomeTimedOut として返し、エラーにはしない。
// エラーを返すのはステータス取得自体が (再試行を使い切って) 失敗した場合のみ。
func (p *Poller) Poll(ctx context.Context, job *Job) (PollOutcome, error) {
	start := p.now()
	polls := 0

	for p.now().Sub(start) < p.timeout {
		// 終端状態のジョブは再取得しない
		if job.Status.IsTerminal() {
			return terminalOutcome(job, polls), nil
		}

		rec, err := p.reader.GetStatus(ctx, job.ID)
		if err != nil {
			p.logger.Error("job status read failed", "jobID", job.ID, "polls", polls, "error", err)
			return PollOutcome{}, fmt.Errorf("poll job %s: %w", job.ID, err)
		}
		polls++
		job.Observe(rec)

		p.logger.Info("job status polled",
			"jobID", job.ID,
			"status", job.Status.String(),
			"rawStatus", rec.RawStatus,
			"polls", polls,
		)

		if job.Status.IsTerminal() {
			return terminalOutcome(job, polls), nil
		}

		p.logger.Debug("job not ready, waiting", "jobID", job.ID, "interval", p.interval.String())
		if err := p.sleep(ctx, p.interval); err != nil {
			return PollOutcome{}, fmt.Errorf("poll job %s: %w", job.ID, err)
		}
	}

	msg := fmt.Sprintf("polling timed out after %s without a final status", p.timeout)
	job.Error = mo.Some(msg)
	p.logger.Warn("job polling timed out", "jobID", job.ID, "polls", polls, "timeout", p.timeout.String())

	return PollOutcome{
		Kind:   OutcomeTimedOut,
		Detail: msg,
		Polls:  polls,
	}, nil
}

func terminalOutcome(job *Job, polls int) PollOutcome {
	return PollOutcome{
		Kind:   outcomeFor(job.Status),
		Detail: job.Error.OrEmpty(),
		Polls:  polls,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
