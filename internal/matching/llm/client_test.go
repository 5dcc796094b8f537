package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/errkind"
)

type fakeProvider struct {
	name    string
	resp    Response
	usage   Usage
	err     error
	calls   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Score(ctx context.Context, prompt string) (Response, Usage, error) {
	f.calls++
	return f.resp, f.usage, f.err
}

func TestClient_AcceptsAboveThreshold(t *testing.T) {
	primary := &fakeProvider{name: "primary", resp: Response{Similarity: 0.95}, usage: Usage{Provider: "primary", CostUSD: 0.01}}
	fallback := &fakeProvider{name: "fallback"}

	c := NewClient(primary, fallback, 60, 500, 0.92)
	d := c.Evaluate(context.Background(), domain.Market{}, domain.Market{})

	require.True(t, d.Accepted)
	require.Equal(t, 1, primary.calls)
	require.Equal(t, 0, fallback.calls)
	require.InDelta(t, 0.01, c.TotalCostUSD(), 1e-9)
}

func TestClient_RejectsBelowThreshold(t *testing.T) {
	primary := &fakeProvider{name: "primary", resp: Response{Similarity: 0.5}}
	fallback := &fakeProvider{name: "fallback"}

	c := NewClient(primary, fallback, 60, 500, 0.92)
	d := c.Evaluate(context.Background(), domain.Market{}, domain.Market{})

	require.False(t, d.Accepted)
}

func TestClient_FallsThroughOnPermanentPrimaryFailure(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("permanent: bad request")}
	fallback := &fakeProvider{name: "fallback", resp: Response{Similarity: 0.99}, usage: Usage{Provider: "fallback", CostUSD: 0.02}}

	c := NewClient(primary, fallback, 60, 500, 0.92)
	c.retryPolicy.MaxAttempts = 1
	d := c.Evaluate(context.Background(), domain.Market{}, domain.Market{})

	require.True(t, d.Accepted)
	require.Equal(t, 1, fallback.calls)
}

func TestClient_ConservativeZeroWhenBothProvidersFail(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errkind.New(errkind.KindTransientTransport, errors.New("timeout"))}
	fallback := &fakeProvider{name: "fallback", err: errkind.New(errkind.KindTransientTransport, errors.New("timeout"))}

	c := NewClient(primary, fallback, 60, 500, 0.92)
	c.retryPolicy.MaxAttempts = 1
	d := c.Evaluate(context.Background(), domain.Market{}, domain.Market{})

	require.False(t, d.Accepted)
	require.Equal(t, 0.0, d.Score)
}

func TestClient_TotalCostMatchesSumOfUsage(t *testing.T) {
	primary := &fakeProvider{name: "primary", resp: Response{Similarity: 0.95}, usage: Usage{CostUSD: 0.01}}
	fallback := &fakeProvider{name: "fallback"}
	c := NewClient(primary, fallback, 600, 3000, 0.5)

	for i := 0; i < 5; i++ {
		c.Evaluate(context.Background(), domain.Market{}, domain.Market{})
	}

	sum := 0.0
	for _, u := range c.UsageLog() {
		sum += u.CostUSD
	}
	require.InDelta(t, sum, c.TotalCostUSD(), 1e-9)
}
