// Package stats contains progress calculations and reporting.
package stats

import (
	"context"

	"github.com/verte-zerg/hifz/internal/model"
)

// History provides recorded practice.
type History interface {
	ListListening(ctx context.Context, cfg model.ReportConfig) ([]model.ListeningSession, error)
	ListQuizAttempts(ctx context.Context, cfg model.ReportConfig) ([]model.QuizAttempt, error)
}

// Report contains precomputed data for progress rendering.
type Report struct {
	Daily          model.DailyStats
	MemorizedTotal int
	Listening      []model.ListeningSession
	Attempts       []model.QuizAttempt
}

// BuildReport loads history and combines it with the current daily record.
func BuildReport(ctx context.Context, h History, daily model.DailyStats, memorized int, cfg model.ReportConfig) (Report, error) {
	listening, err := h.ListListening(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	attempts, err := h.ListQuizAttempts(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Daily:          daily,
		MemorizedTotal: memorized,
		Listening:      listening,
		Attempts:       attempts,
	}, nil
}
