// Package model defines the provider-agnostic generation interface agents
// call, plus a MockModel for tests and offline use.
//
// Providers live in sub-packages (openai, anthropic, baseten) and convert
// core.Message histories into their SDK's request shapes.
package model
