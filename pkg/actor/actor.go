package actor

import (
	"context"
	"fmt"
	"math/big"
	"net/url"

	"github.com/aviate-labs/agent-go"
	"github.com/aviate-labs/agent-go/candid/idl"
	"github.com/aviate-labs/agent-go/identity"
	"github.com/aviate-labs/agent-go/principal"
)

// Client is the narrow interface to the remote canister-hosted LLM actor.
// Everything the daemon knows about the actor goes through these three
// operations.
type Client interface {
	// Chat sends the conversation text and returns the actor's reply.
	// An Err variant from the actor is returned as a Go error.
	Chat(ctx context.Context, text string) (string, error)
	// CycleBalance reports the actor's remaining cycle balance.
	CycleBalance(ctx context.Context) (*big.Int, error)
	// QueueLength reports the actor's own internal queue length.
	// Declared by the actor interface; not used by the task loop.
	QueueLength(ctx context.Context) (uint64, error)
}

// chatResult mirrors the candid variant Result<text, text>.
type chatResult struct {
	Ok  *string `ic:"Ok,variant"`
	Err *string `ic:"Err,variant"`
}

// Canister talks to the actor over the IC HTTP interface, signing requests
// with the daemon's identity.
type Canister struct {
	agent      *agent.Agent
	canisterID principal.Principal
}

// NewCanister builds a Client for the given textual canister id.
func NewCanister(canisterID, icURL string, id identity.Identity) (*Canister, error) {
	cid, err := principal.Decode(canisterID)
	if err != nil {
		return nil, fmt.Errorf("invalid canister id %q: %w", canisterID, err)
	}
	host, err := url.Parse(icURL)
	if err != nil {
		return nil, fmt.Errorf("invalid IC URL %q: %w", icURL, err)
	}
	a, err := agent.New(agent.Config{
		Identity:     id,
		ClientConfig: &agent.ClientConfig{Host: host},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create IC agent: %w", err)
	}
	return &Canister{agent: a, canisterID: cid}, nil
}

func (c *Canister) Chat(ctx context.Context, text string) (string, error) {
	var result chatResult
	if err := c.agent.Call(c.canisterID, "chat", []any{text}, []any{&result}); err != nil {
		return "", fmt.Errorf("chat call failed: %w", err)
	}
	if result.Err != nil {
		return "", fmt.Errorf("actor error: %s", *result.Err)
	}
	if result.Ok == nil {
		return "", fmt.Errorf("actor returned empty result")
	}
	return *result.Ok, nil
}

func (c *Canister) CycleBalance(ctx context.Context) (*big.Int, error) {
	var balance idl.Nat
	if err := c.agent.Query(c.canisterID, "cycle_balance", []any{}, []any{&balance}); err != nil {
		return nil, fmt.Errorf("cycle_balance query failed: %w", err)
	}
	return balance.BigInt(), nil
}

func (c *Canister) QueueLength(ctx context.Context) (uint64, error) {
	var length uint64
	if err := c.agent.Query(c.canisterID, "get_queue_length", []any{}, []any{&length}); err != nil {
		return 0, fmt.Errorf("get_queue_length query failed: %w", err)
	}
	return length, nil
}

// FormatCycles renders a cycle balance as a human-readable unit string,
// e.g. "1.234 T cycles".
func FormatCycles(balance *big.Int) string {
	if balance == nil {
		return "unknown"
	}
	f := new(big.Float).SetInt(balance)
	units := []struct {
		limit  *big.Float
		suffix string
	}{
		{big.NewFloat(1e12), "T"},
		{big.NewFloat(1e9), "B"},
		{big.NewFloat(1e6), "M"},
	}
	for _, u := range units {
		if f.Cmp(u.limit) >= 0 {
			v, _ := new(big.Float).Quo(f, u.limit).Float64()
			return fmt.Sprintf("%.3f %s cycles", v, u.suffix)
		}
	}
	return fmt.Sprintf("%s cycles", balance.String())
}
