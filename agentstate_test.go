package agentstate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstate/agent"
	"github.com/hupe1980/agentstate/core"
	"github.com/hupe1980/agentstate/internal/testutil"
	"github.com/hupe1980/agentstate/model"
	"github.com/hupe1980/agentstate/session"
)

func TestNew_GeneratesSessionID(t *testing.T) {
	s, err := New(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, s.SessionID())
	assert.Len(t, s.SessionID(), 21)
}

func TestSession_RegisterModelAgentAndRestore(t *testing.T) {
	ctx := context.Background()
	repo := session.NewInMemoryRepository()

	s, err := New(ctx, "s1", func(o *Options) { o.Repository = repo })
	require.NoError(t, err)

	a, err := agent.NewModelAgent("helper", model.NewMockModel("m"))
	require.NoError(t, err)
	require.NoError(t, s.Register(ctx, a))

	_, err = a.InvokeText(ctx, "hello")
	require.NoError(t, err)

	msgs, err := s.Messages(ctx, "helper")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	s2, err := New(ctx, "s1", func(o *Options) { o.Repository = repo })
	require.NoError(t, err)
	restored, err := agent.NewModelAgent("helper", model.NewMockModel("m"))
	require.NoError(t, err)
	require.NoError(t, s2.Register(ctx, restored))
	assert.Len(t, restored.Messages(), 2)
}

func TestSession_RegisterPlainAgent(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, "s1")
	require.NoError(t, err)

	stub := testutil.NewStubAgent("plain", core.NewUserMessage("seed"))
	require.NoError(t, s.Register(ctx, stub))

	snap, err := s.Agent(ctx, "plain")
	require.NoError(t, err)
	require.NotNil(t, snap)

	msgs, err := s.Messages(ctx, "plain")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	err = s.Register(ctx, testutil.NewStubAgent("plain"))
	assert.ErrorIs(t, err, core.ErrDuplicateAgentInitialization)
}

func TestSession_UnknownAgentSnapshotIsNil(t *testing.T) {
	s, err := New(context.Background(), "s1")
	require.NoError(t, err)

	snap, err := s.Agent(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, snap)
}
