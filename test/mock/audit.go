package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/thefaftek-git/CA-Scanner-sub006/audit"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) LogRun(ctx context.Context, record audit.RunRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
