// Package roundtable provides a high-level façade over the session
// orchestrator for running multi-agent, turn-taking sessions. Most
// applications interact with this package by:
//  1. Describing a session declaratively (config.Load or a config.SessionConfig literal)
//  2. Calling Run for a single session, or RunAll for a batch
//  3. Inspecting the returned transcript, scores and per-agent memories
//
// The façade delegates orchestration to session.Orchestrator while keeping
// setup ergonomics concise. Defaults are safe for local development: scripted
// models need no credentials, and logging is off unless a logger is supplied.
package roundtable

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/roundtable-ai/roundtable/config"
	"github.com/roundtable-ai/roundtable/core"
	"github.com/roundtable-ai/roundtable/session"
)

// Run validates the config, assembles the session and drives it to a
// terminal state. Even when a mid-run fatal condition is returned, the
// result carries the partial transcript accumulated so far.
func Run(ctx context.Context, cfg *config.SessionConfig, optFns ...func(o *session.Options)) (*core.SessionResult, error) {
	orch, err := session.New(cfg, optFns...)
	if err != nil {
		return nil, err
	}
	return orch.Run(ctx)
}

// RunAll runs independent sessions concurrently and returns their results in
// input order. The first fatal or configuration error cancels the remaining
// sessions and is returned; successfully finished sessions keep their slot in
// the result slice.
func RunAll(ctx context.Context, cfgs []*config.SessionConfig, optFns ...func(o *session.Options)) ([]*core.SessionResult, error) {
	results := make([]*core.SessionResult, len(cfgs))

	g, ctx := errgroup.WithContext(ctx)
	for i, cfg := range cfgs {
		g.Go(func() error {
			result, err := Run(ctx, cfg, optFns...)
			results[i] = result
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
