package narrative

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datavex/intel-cli/internal/model"
	"github.com/datavex/intel-cli/internal/score"
	"github.com/datavex/intel-cli/pkg/anthropic"
)

// mockClient returns canned responses in sequence.
type mockClient struct {
	responses []string
	errs      []error
	calls     int
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: m.responses[i]}},
	}, nil
}

func days(n int) *int { return &n }

func sampleInput() Input {
	return Input{
		Meta: model.CompanyMeta{Key: "acme", Name: "Acme Corp", SizeTier: model.SizeMid},
		Signals: model.SignalSet{
			model.SignalHiring: {Type: model.SignalHiring, Text: "hiring 20 engineers", RecencyDays: days(5)},
			model.SignalInfra:  {Type: model.SignalInfra, Text: "latency problems at scale"},
		},
		Breakdown: model.ScoreBreakdown{
			OpportunityScore: 0.612,
			Intent:           0.7,
			Conversion:       0.5,
			Priority:         model.PriorityMedium,
		},
		State:    model.StateGrowth,
		Decision: score.Decision{Strategy: score.StrategyCoBuild, Timing: "next 3-6 months"},
	}
}

func TestClaudeGenerator_ParsesFencedResponse(t *testing.T) {
	mock := &mockClient{responses: []string{
		"```json\n{\"summary\": \"Acme is growing.\", \"rationale\": [\"hiring\"], \"recommended_action\": \"reach out\"}\n```",
	}}
	g := NewClaudeGenerator(mock, ClaudeOptions{})

	res, err := g.Generate(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, SourceModel, res.Source)
	assert.Equal(t, "Acme is growing.", res.Summary)
	assert.Equal(t, []string{"hiring"}, res.Rationale)
	assert.Equal(t, 1, mock.calls)
}

func TestClaudeGenerator_RecoversEmbeddedJSON(t *testing.T) {
	mock := &mockClient{responses: []string{
		"Here is the narrative you asked for:\n{\"summary\": \"ok\", \"recommended_action\": \"call\"}\nLet me know.",
	}}
	g := NewClaudeGenerator(mock, ClaudeOptions{})

	res, err := g.Generate(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, SourceModel, res.Source)
	assert.Equal(t, "ok", res.Summary)
}

func TestClaudeGenerator_RetriesThenSucceeds(t *testing.T) {
	mock := &mockClient{
		errs:      []error{eris.New("transport down"), nil},
		responses: []string{"", "{\"summary\": \"second try\"}"},
	}
	g := NewClaudeGenerator(mock, ClaudeOptions{})

	res, err := g.Generate(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, SourceModel, res.Source)
	assert.Equal(t, "second try", res.Summary)
	assert.Equal(t, 2, mock.calls)
}

func TestClaudeGenerator_FallsBackToRules(t *testing.T) {
	mock := &mockClient{
		errs:      []error{eris.New("down"), eris.New("still down")},
		responses: []string{"", ""},
	}
	g := NewClaudeGenerator(mock, ClaudeOptions{})

	res, err := g.Generate(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, SourceRules, res.Source)
	assert.NotEmpty(t, res.Summary)
	assert.Equal(t, 2, mock.calls)
}

func TestClaudeGenerator_GarbageResponseFallsBack(t *testing.T) {
	mock := &mockClient{responses: []string{"not json at all", "{\"rationale\": []}"}}
	g := NewClaudeGenerator(mock, ClaudeOptions{})

	// Second response parses but has no summary, so it is rejected too.
	res, err := g.Generate(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, SourceRules, res.Source)
}

func TestClaudeGenerator_AttemptBudget(t *testing.T) {
	mock := &mockClient{
		errs:      []error{eris.New("a"), eris.New("b"), eris.New("c")},
		responses: []string{"", "", ""},
	}
	g := NewClaudeGenerator(mock, ClaudeOptions{MaxAttempts: 3, Timeout: time.Second})

	_, err := g.Generate(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, 3, mock.calls)
}

func TestRulesGenerator_Deterministic(t *testing.T) {
	g := NewRulesGenerator()
	in := sampleInput()

	first, err := g.Generate(context.Background(), in)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := g.Generate(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	assert.Equal(t, SourceRules, first.Source)
	assert.Contains(t, first.Summary, "Acme Corp")
	assert.Contains(t, first.Summary, "0.612")
	require.Len(t, first.Rationale, 2)
	assert.Contains(t, first.Rationale[0], "active hiring")
	assert.Contains(t, first.Rationale[0], "5 days ago")
	assert.Contains(t, first.RecommendedAction, "co-build")
	assert.Contains(t, first.RecommendedAction, "next 3-6 months")
}

func TestRulesGenerator_NoSignals(t *testing.T) {
	g := NewRulesGenerator()
	in := sampleInput()
	in.Signals = model.SignalSet{}
	in.State = model.StateStable

	res, err := g.Generate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Rationale, 1)
	assert.Contains(t, res.Rationale[0], "no classified signals")
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose wrapped", "Sure: {\"a\":1} hope that helps", `{"a":1}`},
		{"no braces", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}
