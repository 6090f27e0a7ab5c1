package engine

import (
	"context"

	"github.com/hupe1980/biosphere/agent"
	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/similarity"
	"github.com/hupe1980/biosphere/synapse"
)

// SpawnAnchors are the phrasings a thought is compared with to detect a
// request for a helper agent.
var SpawnAnchors = []string{
	"We need to spawn a helper agent",
	"Spawn a new agent to help with this problem",
	"We need a new specialist to assist us",
	"Create a helper agent for this issue",
}

// DistressAnchor selects the history replayed into a freshly spawned helper.
const DistressAnchor = "confusion, uncertainty, contradiction, being stuck, unable to proceed"

// spawnIntent reports whether sig asks for a helper.
func (e *Engine) spawnIntent(ctx context.Context, sig core.Signal) (bool, error) {
	anchors, err := e.spawnAnchorVectors(ctx)
	if err != nil {
		return false, err
	}

	for _, anchor := range anchors {
		sim, err := similarity.Cosine(sig.Pheromone, anchor)
		if err != nil {
			return false, err
		}
		if sim > e.cfg.SpawnIntentThreshold {
			return true, nil
		}
	}

	return false, nil
}

// spawnHelper asks the spawner for a helper, runs the quorum check, admits
// the helper and replays the most recent distress-related signals into it.
// Only fatal errors are returned.
func (e *Engine) spawnHelper(ctx context.Context, sig core.Signal) error {
	hs, ok := e.spawner.(core.HelperSpawner)
	if !ok {
		e.logger.Debug("engine.helper.unsupported", "signal", sig.ID)
		return nil
	}

	helper, err := hs.SpawnHelperForDistress(ctx, sig, e.Agents())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Warn("engine.helper.failed", "signal", sig.ID, "error", err)
		return nil
	}

	if helper == nil {
		e.logger.Debug("engine.helper.no_proposal", "signal", sig.ID)
		return nil
	}

	admitted, err := e.admit(ctx, helper, "helper")
	if err != nil || !admitted {
		return err
	}

	anchor, err := e.distressVector(ctx)
	if err != nil {
		if e.fatal(ctx, err) {
			return err
		}
		e.logger.Warn("engine.helper.replay_failed", "agent", helper.ID(), "error", err)
		return nil
	}

	replayed := e.history.SearchRecent(anchor, e.cfg.ReplayThreshold, e.cfg.ReplayLimit)
	for _, r := range replayed {
		helper.Perceive(r.Signal)
	}

	e.logger.Info("engine.helper.spawned", "agent", helper.ID(), "replayed", len(replayed))

	return nil
}

// bridge tries once per ordered pair and tick to insert a translator between
// from and to. On success the original signal is delivered to the bridge.
// Only fatal errors are returned.
func (e *Engine) bridge(ctx context.Context, sig core.Signal, from, to core.AgentInfo) error {
	if e.designer == nil {
		return nil
	}

	key := synapse.Key{From: from.ID, To: to.ID}
	if e.bridged[key] {
		return nil
	}
	e.bridged[key] = true

	bc := core.BridgeContext{Source: from, Target: to, Signal: sig}

	bp, err := e.designer.DesignBridge(ctx, bc)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Warn("engine.bridge.design_failed", "from", from.ID, "to", to.ID, "error", err)
		return nil
	}

	if err := bp.Validate(); err != nil {
		e.logger.Warn("engine.bridge.malformed", "from", from.ID, "to", to.ID, "error", err)
		return nil
	}

	if e.has(bp.ID) {
		e.logger.Warn("engine.bridge.duplicate", "agent", bp.ID)
		return nil
	}

	var bridge core.Agent
	if bs, ok := e.spawner.(core.BridgeSpawner); ok {
		bridge, err = bs.SpawnBridgeAgent(ctx, bp, bc)
	} else {
		bridge, err = agent.NewModelAgentFromBlueprint(bp, e.backend, func(o *agent.ModelAgentOptions) {
			o.Logger = e.logger
		})
	}

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Warn("engine.bridge.spawn_failed", "agent", bp.ID, "error", err)
		return nil
	}

	if bridge == nil {
		return nil
	}

	admitted, err := e.admit(ctx, bridge, "bridge")
	if err != nil || !admitted {
		return err
	}

	bridge.Perceive(sig)

	e.logger.Info("engine.bridge.spawned", "agent", bridge.ID(), "from", from.ID, "to", to.ID)

	return nil
}

// admit runs the quorum check and births a spawned candidate. Rejections and
// non-fatal failures are logged and reported as not admitted.
func (e *Engine) admit(ctx context.Context, candidate core.Agent, reason string) (bool, error) {
	if e.has(candidate.ID()) {
		e.logger.Warn("engine.spawn.duplicate", "agent", candidate.ID(), "reason", reason)
		return false, nil
	}

	ok, err := e.quorum(ctx, candidate.Name())
	if err != nil {
		if e.fatal(ctx, err) {
			return false, err
		}
		e.logger.Warn("engine.quorum.failed", "agent", candidate.ID(), "error", err)
		return false, nil
	}

	if !ok {
		e.logger.Info("engine.quorum.rejected", "agent", candidate.ID(), "name", candidate.Name(), "reason", reason)
		return false, nil
	}

	if err := e.birth(ctx, candidate, reason); err != nil {
		if e.fatal(ctx, err) {
			return false, err
		}
		e.logger.Warn("engine.spawn.birth_failed", "agent", candidate.ID(), "error", err)
		return false, nil
	}

	return true, nil
}

// quorum reports whether name is distinct enough from the "name: patterns"
// description of every live agent.
func (e *Engine) quorum(ctx context.Context, name string) (bool, error) {
	nameVec, err := e.embed(ctx, name)
	if err != nil {
		return false, err
	}

	for _, info := range e.Agents() {
		desc, err := e.description(ctx, info)
		if err != nil {
			return false, err
		}

		sim, err := similarity.Cosine(nameVec, desc)
		if err != nil {
			return false, err
		}

		if sim > e.cfg.QuorumThreshold {
			e.logger.Debug("engine.quorum.match", "candidate", name, "existing", info.ID, "similarity", sim)
			return false, nil
		}
	}

	return true, nil
}

// description returns the cached description embedding of a live agent.
func (e *Engine) description(ctx context.Context, info core.AgentInfo) ([]float64, error) {
	e.mu.RLock()
	vec, ok := e.descriptions[info.ID]
	e.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := e.embed(ctx, info.Description())
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if _, live := e.agents[info.ID]; live {
		e.descriptions[info.ID] = vec
	}
	e.mu.Unlock()

	return vec, nil
}

func (e *Engine) spawnAnchorVectors(ctx context.Context) ([][]float64, error) {
	e.anchorMu.Lock()
	defer e.anchorMu.Unlock()

	if e.spawnAnchors != nil {
		return e.spawnAnchors, nil
	}

	anchors := make([][]float64, 0, len(SpawnAnchors))
	for _, text := range SpawnAnchors {
		vec, err := e.embed(ctx, text)
		if err != nil {
			return nil, err
		}
		anchors = append(anchors, vec)
	}

	e.spawnAnchors = anchors
	return anchors, nil
}

func (e *Engine) distressVector(ctx context.Context) ([]float64, error) {
	e.anchorMu.Lock()
	defer e.anchorMu.Unlock()

	if e.distressAnchor != nil {
		return e.distressAnchor, nil
	}

	vec, err := e.embed(ctx, DistressAnchor)
	if err != nil {
		return nil, err
	}

	e.distressAnchor = vec
	return vec, nil
}
