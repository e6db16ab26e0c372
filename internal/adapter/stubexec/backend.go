// Package stubexec implements a deterministic in-process executor
// backend. It fabricates plausible agent output without any external
// service, which makes it the default for development and tests.
package stubexec

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/agentexec"
)

const backendName = "stub"

// Backend synthesizes contributions locally. Output depends only on the
// invocation, so repeated runs over the same request are reproducible.
type Backend struct {
	latency time.Duration
}

// New creates a stub backend. The optional "latency" config value
// (a Go duration string) delays each invocation to mimic real agents.
func New(config map[string]string) (*Backend, error) {
	b := &Backend{}
	if raw, ok := config["latency"]; ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("stubexec: parse latency: %w", err)
		}
		b.latency = d
	}
	return b, nil
}

// Name returns "stub".
func (b *Backend) Name() string { return backendName }

// Capabilities returns what the stub supports.
func (b *Backend) Capabilities() agentexec.Capabilities {
	return agentexec.Capabilities{Concurrent: true}
}

// Invoke fabricates a contribution for the unit.
func (b *Backend) Invoke(ctx context.Context, inv agentexec.Invocation) (*agentexec.Result, error) {
	start := time.Now()

	if b.latency > 0 {
		select {
		case <-time.After(b.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return &agentexec.Result{
		UnitID:          inv.UnitID,
		AgentKind:       inv.AgentKind,
		Content:         synthesize(inv),
		QualityEstimate: estimate(inv),
		Duration:        time.Since(start),
		Backend:         backendName,
	}, nil
}

// Close releases nothing; the stub holds no resources.
func (b *Backend) Close() error { return nil }

// synthesize builds per-kind content for the topic. Upstream context is
// acknowledged so dependency plumbing is visible in the output.
func synthesize(inv agentexec.Invocation) string {
	topic := inv.Request.Topic
	var sb strings.Builder

	switch inv.AgentKind {
	case agent.KindResearch:
		fmt.Fprintf(&sb, "Research notes on %q: three primary sources identified, two supporting datasets, one open question flagged for review.", topic)
	case agent.KindStructure:
		fmt.Fprintf(&sb, "Outline for %q: introduction, background, core analysis, practical guidance, summary.", topic)
	case agent.KindWriting:
		fmt.Fprintf(&sb, "Draft for %q covering the outlined sections with transitions and a closing call to action.", topic)
	case agent.KindSEO:
		fmt.Fprintf(&sb, "Keyword set for %q with primary and secondary terms, heading suggestions, and internal link targets.", topic)
	case agent.KindMeta:
		fmt.Fprintf(&sb, "Title and description variants for %q tuned to length limits.", topic)
	case agent.KindQuality:
		fmt.Fprintf(&sb, "Review of %q draft: tone consistent, two passive constructions rewritten, terminology unified.", topic)
	case agent.KindFactCheck:
		fmt.Fprintf(&sb, "Fact check for %q: all verifiable claims traced, one statistic updated to the latest figure.", topic)
	case agent.KindCitation:
		fmt.Fprintf(&sb, "Citation list for %q in a consistent style, every source resolvable.", topic)
	default:
		fmt.Fprintf(&sb, "%s output for %q.", inv.AgentKind, topic)
	}

	if len(inv.Context) > 0 {
		kinds := make([]string, 0, len(inv.Context))
		for k := range inv.Context {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Fprintf(&sb, " Builds on %s input.", strings.Join(kinds, ", "))
	}

	return sb.String()
}

// estimate derives a stable quality score in [0.70, 0.95] from the unit
// identity, so retries of the same unit report the same number.
func estimate(inv agentexec.Invocation) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(string(inv.AgentKind) + "/" + inv.Request.Topic))
	return 0.70 + float64(h.Sum32()%26)/100
}
