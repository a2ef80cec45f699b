package parsing

import (
	"strings"

	"github.com/samber/mo"
)

// JobStatus はリモート解析ジョブの状態
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// ParseJobStatus はリモートサービスが返すステータス文字列を JobStatus に変換する。
// 未知の値や空文字は pending として扱う。
func ParseJobStatus(raw string) JobStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS":
		return StatusSucceeded
	case "ERROR":
		return StatusFailed
	case "CANCELLED", "CANCELED":
		return StatusCancelled
	default:
		return StatusPending
	}
}

// IsTerminal は以降の状態遷移が起こらない状態かを返す
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s JobStatus) String() string {
	return string(s)
}

// JobHandle は submit 成功時に得られるジョブの識別子
type JobHandle struct {
	ID string
}

// StatusRecord は1回のステータス取得結果
type StatusRecord struct {
	Status    JobStatus
	RawStatus string
	Error     mo.Option[string]
}

// Job はリクエスト1件の処理中のみメモリ上に存在する解析ジョブ
type Job struct {
	ID     string
	Status JobStatus
	Result mo.Option[string]
	Error  mo.Option[string]
}

// NewJob は submit 結果から pending 状態の Job を作成する
func NewJob(handle JobHandle) *Job {
	return &Job{
		ID:     handle.ID,
		Status: StatusPending,
	}
}

// Observe はステータス取得結果を Job に反映する。
// 終端状態に到達済みの Job は変更しない。
func (j *Job) Observe(rec StatusRecord) {
	if j.Status.IsTerminal() {
		return
	}
	j.Status = rec.Status
	if rec.Error.IsPresent() {
		j.Error = rec.Error
	}
}

// OutcomeKind はポーリング結果の種別
type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota
	OutcomeFailed
	OutcomeCancelled
	OutcomeTimedOut
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// PollOutcome はポーリングの最終結果。
// 終端状態とタイムアウトはいずれもエラーではなく値として返される。
type PollOutcome struct {
	Kind   OutcomeKind
	Detail string
	Polls  int
}

// Succeeded は解析が成功したかを返す
func (o PollOutcome) Succeeded() bool {
	return o.Kind == OutcomeSucceeded
}

func outcomeFor(status JobStatus) OutcomeKind {
	switch status {
	case StatusSucceeded:
		return OutcomeSucceeded
	case StatusCancelled:
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}
