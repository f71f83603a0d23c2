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

package scheduling

import (
	"context"
	"strconv"

	"github.com/go-logr/logr"
	v1 "k8s.io/api/core/v1"
	"k8s.io/klog/v2"
	crlog "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/kaus-io/cluster-priority-scheduler/pkg/clusterapi"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/events"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/schedulererrors"
	core "github.com/kaus-io/cluster-priority-scheduler/pkg/scheduling"
)

// Dispatcher is the scheduler's single logical thread of control over the queue and the
// cluster. One Dispatcher owns one Queue and drives one Cycle; nothing else is allowed to
// mutate either.
type Dispatcher struct {
	Client        clusterapi.Client
	Queue         *core.Queue
	Cycle         *Cycle
	Recorder      events.Recorder
	SchedulerName string
}

// NewDispatcher wires a Dispatcher from its collaborators.
func NewDispatcher(client clusterapi.Client, queue *core.Queue, cycle *Cycle, recorder events.Recorder, schedulerName string) *Dispatcher {
	return &Dispatcher{
		Client:        client,
		Queue:         queue,
		Cycle:         cycle,
		Recorder:      recorder,
		SchedulerName: schedulerName,
	}
}

// Run connects to the pod event stream and processes events until ctx is cancelled or the
// stream ends, in which case it returns a WatchStreamFatal. Per-pod scheduling errors never
// escape this loop; they are logged and the loop continues.
func (d *Dispatcher) Run(ctx context.Context) error {
	logger := crlog.FromContext(ctx)
	logger.Info("starting watch loop", "schedulerName", d.SchedulerName)

	stream, err := d.Client.WatchPods(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-stream:
			if !ok {
				return schedulererrors.NewWatchStreamFatal(context.Canceled)
			}
			d.handle(ctx, logger, evt)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, logger logr.Logger, evt clusterapi.PodEvent) {
	pod := evt.Pod
	id := core.Identity{Namespace: pod.Namespace, Name: pod.Name}

	switch evt.Type {
	case clusterapi.EventAdded, clusterapi.EventModified:
		if !d.admits(pod) {
			return
		}
		logger.Info("admitting pod for scheduling", "pod", klog.KRef(pod.Namespace, pod.Name))
		// A MODIFIED event for a pod already queued replaces its entry rather than
		// duplicating it, preserving at-most-one queue entry per identity.
		d.Queue.Remove(id)
		d.Queue.Push(core.QueueEntry{
			Priority:    priorityOf(pod, d.Cycle.Opts.PriorityAnnotationKey),
			EnqueueTime: d.Cycle.Clock.Now(),
			Pod:         toPodRecord(pod, d.Cycle.Opts.PriorityAnnotationKey),
		})
		if err := d.Cycle.Run(ctx); err != nil {
			logger.Error(err, "scheduling cycle encountered errors")
		}
	case clusterapi.EventDeleted:
		if d.Queue.Remove(id) {
			logger.Info("removed departing pod from queue", "pod", klog.KRef(pod.Namespace, pod.Name))
		}
		if err := d.Cycle.Run(ctx); err != nil {
			logger.Error(err, "scheduling cycle encountered errors")
		}
	default:
		// ERROR and bookmark-style notifications carry no actionable pod state.
	}
}

// admits implements the admission gate: scheduler name matches, no node assigned yet, and
// the pod is Pending.
func (d *Dispatcher) admits(pod *v1.Pod) bool {
	return pod.Spec.SchedulerName == d.SchedulerName &&
		pod.Spec.NodeName == "" &&
		pod.Status.Phase == v1.PodPending
}

// priorityOf reads the configured annotation, defaulting to 0 on absence or malformed
// values, matching the parser's original fallback behavior.
func priorityOf(pod *v1.Pod, annotationKey string) int {
	v, ok := pod.Annotations[annotationKey]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
