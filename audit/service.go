package audit

import (
	"context"
)

type Service interface {
	LogRun(ctx context.Context, record RunRecord) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) LogRun(ctx context.Context, record RunRecord) error {
	return s.repo.LogRun(ctx, record)
}

// NopService discards audit records; used when auditing is disabled.
type NopService struct{}

func (NopService) LogRun(ctx context.Context, record RunRecord) error { return nil }
