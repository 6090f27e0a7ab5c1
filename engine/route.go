package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/similarity"
	"golang.org/x/sync/errgroup"
)

// emission is one thought handed from an emitting agent to the coordinator.
// done receives the routing result; the agent waits for it before it pulls
// its next thought.
type emission struct {
	from    string
	thought string
	done    chan error
}

// target is a resolved recipient with the similarity it was resolved at.
type target struct {
	agent core.Agent
	info  core.AgentInfo
	sim   float64
}

// emitAll lets every agent emit concurrently and routes the thoughts one at
// a time on the calling goroutine. Per-agent order is preserved; thoughts of
// different agents interleave.
func (e *Engine) emitAll(ctx context.Context, agents []core.Agent) error {
	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.Concurrency > 0 {
		g.SetLimit(e.cfg.Concurrency)
	}

	queue := make(chan emission)
	finished := make(chan error, 1)

	go func() {
		for _, a := range agents {
			a := a
			g.Go(func() error { return e.drain(gctx, a, queue) })
		}
		finished <- g.Wait()
	}()

	var fatal error
	for {
		select {
		case em := <-queue:
			if fatal != nil {
				em.done <- fatal
				continue
			}
			if err := e.route(ctx, em); err != nil {
				fatal = err
			}
			em.done <- fatal
		case err := <-finished:
			if fatal != nil {
				return fatal
			}
			return err
		}
	}
}

// drain pulls one agent's stream, handing each thought to the coordinator
// and waiting for it to be routed. A failing agent only loses the rest of
// its own stream, unless the failure is a dimension mismatch.
func (e *Engine) drain(ctx context.Context, a core.Agent, queue chan<- emission) error {
	out, errCh := a.Emit(ctx)

	for thought := range out {
		em := emission{from: a.ID(), thought: thought, done: make(chan error, 1)}

		select {
		case queue <- em:
		case <-ctx.Done():
			return ctx.Err()
		}

		select {
		case err := <-em.done:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if errCh == nil {
		return nil
	}

	if err := <-errCh; err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if e.fatal(ctx, err) {
			return fmt.Errorf("agent %s: %w", a.ID(), err)
		}
		e.logger.Warn("engine.emit.failed", "agent", a.ID(), "error", err)
	}

	return nil
}

// route ingests one thought. Backend failures abort only this thought.
func (e *Engine) route(ctx context.Context, em emission) error {
	if strings.TrimSpace(em.thought) == "" {
		return nil
	}

	e.routeMu.Lock()
	defer e.routeMu.Unlock()

	if _, err := e.ingest(ctx, em.thought, em.from); err != nil {
		if e.fatal(ctx, err) {
			return err
		}
		e.logger.Warn("engine.signal.aborted", "from", em.from, "error", err)
	}

	return nil
}

// ingest embeds text, appends the resulting signal to the history and
// propagates it. Callers hold routeMu.
func (e *Engine) ingest(ctx context.Context, text, from string) (core.Signal, error) {
	vec, err := e.embed(ctx, text)
	if err != nil {
		return core.Signal{}, fmt.Errorf("embed signal: %w", err)
	}

	sig := core.NewSignal(text, from, vec)
	e.history.Append(sig)

	e.logger.Debug("engine.signal.recorded", "signal", sig.ID, "from", from)

	return sig, e.propagate(ctx, sig)
}

// propagate diverts spawn requests to the helper path and routes everything
// else. Sentinel-authored signals are delivered untouched to their
// recipients; agent-authored signals go through three-tier coupling.
func (e *Engine) propagate(ctx context.Context, sig core.Signal) error {
	intent, err := e.spawnIntent(ctx, sig)
	if err != nil {
		if e.fatal(ctx, err) {
			return err
		}
		e.logger.Warn("engine.spawn_intent.failed", "signal", sig.ID, "error", err)
	}

	if intent {
		return e.spawnHelper(ctx, sig)
	}

	targets, err := e.resolve(sig)
	if err != nil {
		return err
	}

	if core.IsSentinel(sig.EmittedBy) {
		for _, t := range targets {
			t.agent.Perceive(sig)
		}
		e.logger.Debug("engine.signal.delivered", "signal", sig.ID, "from", sig.EmittedBy, "recipients", len(targets))
		return nil
	}

	// the author may have died while its thought was in flight
	if !e.has(sig.EmittedBy) {
		e.logger.Debug("engine.signal.orphaned", "signal", sig.ID, "from", sig.EmittedBy)
		return nil
	}

	from := e.info(sig.EmittedBy)
	for _, t := range targets {
		if err := e.couple(ctx, sig, from, t); err != nil {
			return err
		}
	}

	return nil
}

// resolve selects the recipients of sig among all other live agents.
//
// External and system signals reach everybody. Otherwise every agent whose
// receptor resonates is selected; when nobody resonates, ambient awareness
// picks up to AmbientLimit agents above AmbientThreshold, most similar first.
func (e *Engine) resolve(sig core.Signal) ([]target, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	all := make([]target, 0, len(e.order))
	for _, id := range e.order {
		if id == sig.EmittedBy {
			continue
		}

		sim, err := similarity.Cosine(sig.Pheromone, e.receptors[id])
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", id, err)
		}

		a := e.agents[id]
		all = append(all, target{agent: a, info: core.InfoOf(a), sim: sim})
	}

	if core.IsBroadcaster(sig.EmittedBy) {
		return all, nil
	}

	resonant := make([]target, 0, len(all))
	for _, t := range all {
		if t.agent.Receptors().Resonates(t.sim) {
			resonant = append(resonant, t)
		}
	}

	if len(resonant) > 0 {
		return resonant, nil
	}

	corpus := make([][]float64, len(all))
	for i, t := range all {
		corpus[i] = e.receptors[t.info.ID]
	}

	matches, err := similarity.TopK(sig.Pheromone, corpus, e.cfg.AmbientThreshold, e.cfg.AmbientLimit)
	if err != nil {
		return nil, fmt.Errorf("ambient: %w", err)
	}

	ambient := make([]target, len(matches))
	for i, m := range matches {
		ambient[i] = all[m.Index]
	}

	return ambient, nil
}

// couple applies the three-tier rule to one recipient, using the similarity
// between the pheromone and the recipient's cached receptor embedding.
func (e *Engine) couple(ctx context.Context, sig core.Signal, from core.AgentInfo, t target) error {
	switch {
	case t.sim > e.cfg.DirectThreshold:
		t.agent.Perceive(sig)
		e.logger.Debug("engine.couple.direct", "from", from.ID, "to", t.info.ID, "similarity", t.sim)
	case t.sim > e.cfg.SynapseThreshold:
		syn := e.synapses.GetOrCreate(from, t.info, t.sim)
		t.agent.Perceive(syn.Transmit(ctx, sig))
		e.logger.Debug("engine.couple.synapse", "from", from.ID, "to", t.info.ID, "similarity", t.sim)
	case t.sim > e.cfg.BridgeThreshold:
		e.logger.Debug("engine.couple.bridge", "from", from.ID, "to", t.info.ID, "similarity", t.sim)
		return e.bridge(ctx, sig, from, t.info)
	default:
		e.logger.Debug("engine.couple.dropped", "from", from.ID, "to", t.info.ID, "similarity", t.sim)
	}

	return nil
}
