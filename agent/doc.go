// Package agent provides ModelAgent, a conversational agent that drives a
// model.Model and keeps its history and state persisted through a
// core.SessionManager.
//
// A typical turn:
//
//	a, _ := agent.NewModelAgent("support", llm)
//	_ = a.Attach(ctx, sessionManager) // create or restore
//	reply, err := a.InvokeText(ctx, "hello")
//
// Attach either persists the agent as new or replaces its messages and state
// with what the session holds. Instructions can be static text or templates
// rendered against the agent state.
package agent
