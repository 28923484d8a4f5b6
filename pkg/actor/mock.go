package actor

import (
	"context"
	"fmt"
	"math/big"
)

// MockClient is a scripted fake actor for tests. Each Chat call consumes
// the next response function in order.
type MockClient struct {
	Responses []func(text string) (string, error)
	CallCount int

	Balance    *big.Int
	BalanceErr error
}

func (m *MockClient) Chat(_ context.Context, text string) (string, error) {
	if m.CallCount >= len(m.Responses) {
		return "", fmt.Errorf("unexpected call to Chat: call count %d, response count %d", m.CallCount, len(m.Responses))
	}
	reply, err := m.Responses[m.CallCount](text)
	m.CallCount++
	return reply, err
}

func (m *MockClient) CycleBalance(_ context.Context) (*big.Int, error) {
	if m.BalanceErr != nil {
		return nil, m.BalanceErr
	}
	return m.Balance, nil
}

func (m *MockClient) QueueLength(_ context.Context) (uint64, error) {
	return 0, nil
}

// StaticReply returns a response function that ignores the conversation and
// replies with the given text.
func StaticReply(reply string) func(string) (string, error) {
	return func(string) (string, error) {
		return reply, nil
	}
}
