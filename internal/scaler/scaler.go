// Package scaler implements the scale-down and scale-up passes over the
// deployments of a single namespace. A run is two phases: Plan lists the
// deployments and decides a target replica count per deployment, Apply
// issues one patch per planned change. Failures are isolated per
// deployment; a failed patch never aborts the pass.
package scaler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jaredgiosinuff/k8-tools/internal/k8s"
	"github.com/jaredgiosinuff/k8-tools/internal/logger"
)

// Mode selects the direction of a scaling pass
type Mode string

const (
	ModeDown Mode = "scale-down"
	ModeUp   Mode = "scale-up"
)

// ErrMissingRecord marks a deployment that has no entry in the restore
// record. The deployment is skipped, never scaled to an invented count.
var ErrMissingRecord = errors.New("no backup record for deployment")

// Options configures a single pass
type Options struct {
	Mode          Mode
	LabelSelector string
	// Exclude lists deployment names the pass must leave untouched
	Exclude []string
	// Restore maps deployment name -> target replicas for a scale-up
	// with --restore. Nil means scale-up falls back to DefaultReplicas.
	Restore map[string]int32
	// DefaultReplicas is the scale-up target when no restore record is
	// in play
	DefaultReplicas int32
}

// Change is one planned mutation: scale deployment Name from From to To
// replicas. Skip marks deployments the pass will not touch, with Err
// carrying the reason when the skip is an error condition.
type Change struct {
	Name string
	From int32
	To   int32
	Skip bool
	Err  error
}

// Plan is the full set of decisions for a pass, computed before any
// mutation happens
type Plan struct {
	Namespace string
	Mode      Mode
	Changes   []Change
	// Original records the pre-mutation replica count of every listed
	// deployment, keyed by name. Populated on scale-down for backup.
	Original map[string]int32
}

// Result is the outcome of applying one Change
type Result struct {
	Name     string
	Previous int32
	Target   int32
	Skipped  bool
	DryRun   bool
	Err      error
}

// Summary aggregates per-deployment results for a completed pass
type Summary struct {
	Namespace string
	Mode      Mode
	DryRun    bool
	Results   []Result
}

// Scaled returns the number of deployments successfully patched (or
// simulated, under dry-run)
func (s *Summary) Scaled() int {
	n := 0
	for _, r := range s.Results {
		if !r.Skipped && r.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of deployments whose patch failed
func (s *Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Err != nil && !r.Skipped {
			n++
		}
	}
	return n
}

// Skipped returns the number of deployments the pass left untouched
func (s *Summary) Skipped() int {
	n := 0
	for _, r := range s.Results {
		if r.Skipped {
			n++
		}
	}
	return n
}

// Scaler runs scaling passes against one cluster
type Scaler struct {
	client k8s.Interface
	log    *logger.Logger
}

// New creates a Scaler
func New(client k8s.Interface, log *logger.Logger) *Scaler {
	return &Scaler{client: client, log: log}
}

// Plan lists the namespace's deployments and decides the target replica
// count for each. A list failure is fatal for the run.
func (s *Scaler) Plan(ctx context.Context, namespace string, opts Options) (*Plan, error) {
	deployments, err := s.client.ListDeployments(ctx, namespace, opts.LabelSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve deployments in namespace '%s': %w", namespace, err)
	}

	excluded := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		excluded[name] = true
	}

	plan := &Plan{
		Namespace: namespace,
		Mode:      opts.Mode,
		Original:  make(map[string]int32, len(deployments)),
	}

	for _, deployment := range deployments {
		current := int32(0)
		if deployment.Spec.Replicas != nil {
			current = *deployment.Spec.Replicas
		}
		plan.Original[deployment.Name] = current

		change := Change{Name: deployment.Name, From: current}
		switch {
		case excluded[deployment.Name]:
			change.Skip = true
		case opts.Mode == ModeDown:
			change.To = 0
		case opts.Restore != nil:
			target, ok := opts.Restore[deployment.Name]
			if !ok {
				change.Skip = true
				change.Err = ErrMissingRecord
			} else {
				change.To = target
			}
		default:
			change.To = opts.DefaultReplicas
		}
		plan.Changes = append(plan.Changes, change)
	}

	return plan, nil
}

// Apply executes a plan sequentially, one patch per non-skipped change.
// Under dry-run the traversal and logging happen but no patch is issued.
// Every deployment gets exactly one log line recording the outcome.
func (s *Scaler) Apply(ctx context.Context, plan *Plan, dryRun bool) *Summary {
	verb := "Scaling down"
	if plan.Mode == ModeUp {
		verb = "Scaling up"
	}
	if dryRun {
		verb = "Simulating " + strings.ToLower(verb[:1]) + verb[1:]
	}
	s.log.Infof("%s deployments in namespace %s", verb, plan.Namespace)

	summary := &Summary{Namespace: plan.Namespace, Mode: plan.Mode, DryRun: dryRun}

	for _, change := range plan.Changes {
		result := Result{
			Name:     change.Name,
			Previous: change.From,
			Target:   change.To,
			Skipped:  change.Skip,
			DryRun:   dryRun,
			Err:      change.Err,
		}

		switch {
		case change.Skip && errors.Is(change.Err, ErrMissingRecord):
			s.log.Warningf("No backup record for deployment '%s', skipping", change.Name)
		case change.Skip:
			s.log.Infof("Skipping excluded deployment '%s'", change.Name)
		case dryRun:
			s.log.Infof("Simulated scaling deployment '%s' to %d replicas", change.Name, change.To)
		default:
			if err := s.client.ScaleDeployment(ctx, plan.Namespace, change.Name, change.To); err != nil {
				result.Err = err
				s.log.Errorf("Failed to scale deployment '%s': %v", change.Name, err)
			} else {
				s.log.Infof("Scaled deployment '%s' to %d replicas", change.Name, change.To)
			}
		}

		summary.Results = append(summary.Results, result)
	}

	return summary
}
