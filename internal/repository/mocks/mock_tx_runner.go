package mocks

import "context"

// MockTxRunner runs fn inline without a database. Service tests use it so
// transactional flows execute their bodies directly.
type MockTxRunner struct{}

func (m *MockTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
