/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package scheduling (controllers) is the I/O half of the scheduler: it turns
// pkg/scheduling's pure decisions into cluster API calls, keeping the decision logic itself
// free of any client-go dependency.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/patrickmn/go-cache"
	"go.uber.org/multierr"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"
	crlog "sigs.k8s.io/controller-runtime/pkg/log"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kaus-io/cluster-priority-scheduler/pkg/clusterapi"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/events"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/metrics"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/operator/options"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/schedulererrors"
	core "github.com/kaus-io/cluster-priority-scheduler/pkg/scheduling"
)

const noCandidateWarningDebounce = 2 * time.Minute

// Cycle drains the queue and attempts to place each entry in priority order, taking one
// fresh cluster snapshot per entry so a bind earlier in the pass is always visible to the
// next.
type Cycle struct {
	Client    clusterapi.Client
	Queue     *core.Queue
	Evaluator *core.Evaluator
	Planner   *core.Planner
	Recorder  events.Recorder
	Clock     clock.Clock
	Opts      *options.Options
	printer   *message.Printer

	// noCandidateWarned debounces the "no candidate node" event so a pod stuck in a
	// requeue loop doesn't spam one event per cycle.
	noCandidateWarned *cache.Cache
}

// NewCycle wires a Cycle from its collaborators.
func NewCycle(client clusterapi.Client, queue *core.Queue, opts *options.Options, recorder events.Recorder, clk clock.Clock) *Cycle {
	return &Cycle{
		Client:            client,
		Queue:             queue,
		Evaluator:         core.NewEvaluator(opts.MaxPodsPerNode, opts.PreemptionDomainSubstring),
		Planner:           core.NewPlanner(opts.PreemptionDomainSubstring),
		Recorder:          recorder,
		Clock:             clk,
		Opts:              opts,
		printer:           message.NewPrinter(language.English),
		noCandidateWarned: cache.New(noCandidateWarningDebounce, time.Minute),
	}
}

// Run drains the queue and processes every entry once. A failing entry is requeued and the
// pass continues with the next one; the errors of all failing entries are combined and
// returned once the pass is complete, for the caller to log.
func (c *Cycle) Run(ctx context.Context) error {
	logger := crlog.FromContext(ctx)
	entries := c.Queue.Drain()
	if len(entries) == 0 {
		return nil
	}
	start := c.Clock.Now()

	var bound, requeued, preempted int
	var errs error
	for _, entry := range entries {
		outcome, err := c.processEntry(ctx, entry)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		switch outcome {
		case outcomeBound:
			bound++
		case outcomeRequeued:
			requeued++
		case outcomePreempted:
			bound++
			preempted++
		}
	}

	metrics.CycleDurationSeconds.Observe(c.Clock.Since(start).Seconds())
	metrics.QueueDepth.Set(float64(c.Queue.Len()))
	logger.Info(c.printer.Sprintf("scheduling cycle complete: %d processed, %d bound (%d via preemption), %d requeued",
		len(entries), bound, preempted, requeued))
	return errs
}

type entryOutcome int

const (
	outcomeDone entryOutcome = iota
	outcomeBound
	outcomeRequeued
	outcomePreempted
)

// processEntry attempts, in order: binding to an already-schedulable node; preempting a
// victim and binding once the node frees up; or requeueing when neither is possible.
func (c *Cycle) processEntry(ctx context.Context, entry core.QueueEntry) (entryOutcome, error) {
	logger := crlog.FromContext(ctx).WithValues("pod", klog.KRef(entry.Pod.Namespace, entry.Pod.Name))

	nodes, pods, err := c.snapshot(ctx)
	if err != nil {
		c.requeue(entry)
		return outcomeRequeued, err
	}

	if best, ok := c.Evaluator.BestNode(nodes, pods); ok {
		return c.attemptBind(ctx, logger, entry, best.Name)
	}

	readyNodes := map[string]bool{}
	for _, n := range nodes {
		if core.IsReady(n) {
			readyNodes[n.Name] = true
		}
	}
	plan, ok := c.Planner.Plan(entry.Pod, pods, readyNodes)
	if !ok {
		logger.Info("no candidate node and no preemption target; requeueing")
		metrics.RequeuesTotal.Inc()
		c.warnNoCandidate(entry)
		c.requeue(entry)
		return outcomeRequeued, nil
	}

	if err := c.evict(ctx, logger, plan, entry.Pod.Name); err != nil {
		c.requeue(entry)
		return outcomeRequeued, err
	}

	outcome, err := c.attemptBind(ctx, logger, entry, plan.NodeName)
	if outcome == outcomeBound {
		metrics.PreemptionsTotal.Inc()
		return outcomePreempted, err
	}
	return outcome, err
}

// warnNoCandidate publishes a FailedScheduling event for the entry's pod, debounced per pod
// identity so a pod stuck in a requeue loop doesn't spam one event per cycle.
func (c *Cycle) warnNoCandidate(entry core.QueueEntry) {
	key := entry.Pod.Namespace + "/" + entry.Pod.Name
	if _, found := c.noCandidateWarned.Get(key); found {
		return
	}
	c.noCandidateWarned.SetDefault(key, struct{}{})
	stub := &v1.Pod{ObjectMeta: metav1.ObjectMeta{Namespace: entry.Pod.Namespace, Name: entry.Pod.Name}}
	c.Recorder.Publish(events.PodFailedToSchedule(stub, schedulererrors.NewNoCandidateNode(entry.Pod.Namespace, entry.Pod.Name)))
}

// snapshot lists nodes and pods fresh, converting them to the pure core's record types.
func (c *Cycle) snapshot(ctx context.Context) ([]core.NodeRecord, []core.PodRecord, error) {
	v1Nodes, err := c.Client.ListNodes(ctx)
	if err != nil {
		return nil, nil, schedulererrors.NewTransientClusterError("list nodes", err)
	}
	v1Pods, err := c.Client.ListPods(ctx)
	if err != nil {
		return nil, nil, schedulererrors.NewTransientClusterError("list pods", err)
	}
	nodes := make([]core.NodeRecord, 0, len(v1Nodes))
	for _, n := range v1Nodes {
		nodes = append(nodes, toNodeRecord(n))
	}
	pods := make([]core.PodRecord, 0, len(v1Pods))
	for _, p := range v1Pods {
		pods = append(pods, toPodRecord(p, c.Opts.PriorityAnnotationKey))
	}
	return nodes, pods, nil
}

func (c *Cycle) requeue(entry core.QueueEntry) {
	entry.EnqueueTime = c.Clock.Now()
	c.Queue.Push(entry)
}

// attemptBind looks up the live pod object (the queue entry's snapshot may be stale),
// re-checks it hasn't already acquired a node — the queue entry and the fresh list can
// race — then binds.
func (c *Cycle) attemptBind(ctx context.Context, logger logr.Logger, entry core.QueueEntry, nodeName string) (entryOutcome, error) {
	livePods, err := c.Client.ListPods(ctx)
	if err != nil {
		c.requeue(entry)
		return outcomeRequeued, schedulererrors.NewTransientClusterError("list pods", err)
	}
	var podObj *v1.Pod
	for _, p := range livePods {
		if p.Namespace == entry.Pod.Namespace && p.Name == entry.Pod.Name {
			podObj = p
			break
		}
	}
	if podObj == nil {
		// Pod vanished between enqueue and processing; nothing to bind.
		return outcomeDone, nil
	}
	if podObj.Spec.NodeName != "" {
		return outcomeDone, nil
	}

	outcome, err := c.Client.Bind(ctx, podObj, nodeName)
	switch outcome {
	case clusterapi.BindCommitted:
		metrics.BindsTotal.WithLabelValues("committed").Inc()
		c.Recorder.Publish(events.PodBound(podObj, nodeName))
		return outcomeBound, nil
	case clusterapi.BindConflicted:
		metrics.BindsTotal.WithLabelValues("conflicted").Inc()
		c.Recorder.Publish(events.BindConflict(podObj, nodeName))
		return outcomeDone, nil
	default:
		metrics.BindsTotal.WithLabelValues("failed").Inc()
		c.requeue(entry)
		return outcomeRequeued, err
	}
}

// evict deletes the preemption victim, publishes a Preempted event on it, and waits out the
// configured quiet period before the caller attempts to bind the incoming pod.
func (c *Cycle) evict(ctx context.Context, logger logr.Logger, plan core.PreemptionPlan, evictor string) error {
	victim := &v1.Pod{}
	victim.Namespace = plan.Victim.Namespace
	victim.Name = plan.Victim.Name

	if err := c.Client.Delete(ctx, victim); err != nil {
		return schedulererrors.NewTransientClusterError("evict victim", err)
	}
	logger.Info(fmt.Sprintf("evicted %s to make room", types.NamespacedName{Namespace: victim.Namespace, Name: victim.Name}))
	c.Recorder.Publish(events.PodPreempted(victim, evictor))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.Clock.After(c.Opts.PostEvictionWait):
	}
	return nil
}

func toNodeRecord(n *v1.Node) core.NodeRecord {
	conditions := make([]core.NodeCondition, 0, len(n.Status.Conditions))
	for _, cond := range n.Status.Conditions {
		conditions = append(conditions, core.NodeCondition{
			Type:   core.ConditionType(cond.Type),
			Status: core.ConditionStatus(cond.Status),
		})
	}
	allocatable := map[string]string{}
	for name, qty := range n.Status.Allocatable {
		allocatable[string(name)] = qty.String()
	}
	return core.NodeRecord{Name: n.Name, Conditions: conditions, Allocatable: allocatable}
}

func toPodRecord(p *v1.Pod, priorityAnnotation string) core.PodRecord {
	priority := priorityOf(p, priorityAnnotation)
	return core.PodRecord{
		Identity:      core.Identity{Namespace: p.Namespace, Name: p.Name},
		SchedulerName: p.Spec.SchedulerName,
		NodeName:      p.Spec.NodeName,
		Phase:         core.Phase(p.Status.Phase),
		Priority:      priority,
	}
}
