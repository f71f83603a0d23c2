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

package scheduling_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	clock "k8s.io/utils/clock/testing"

	"github.com/kaus-io/cluster-priority-scheduler/pkg/clusterapi"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/clusterapi/fake"
	controllerscheduling "github.com/kaus-io/cluster-priority-scheduler/pkg/controllers/scheduling"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/operator/options"
	core "github.com/kaus-io/cluster-priority-scheduler/pkg/scheduling"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/test"
)

func TestSchedulingCycle(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Scheduling cycle")
}

const priorityKey = "scheduler.alpha.kubernetes.io/priority"

func node(name, cpu, mem string) *v1.Node {
	return &v1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status: v1.NodeStatus{
			Conditions:  []v1.NodeCondition{{Type: v1.NodeReady, Status: v1.ConditionTrue}},
			Allocatable: v1.ResourceList{v1.ResourceCPU: resource.MustParse(cpu), v1.ResourceMemory: resource.MustParse(mem)},
		},
	}
}

func pod(namespace, name string, priority int, boundTo string) *v1.Pod {
	p := &v1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Namespace:   namespace,
			Name:        name,
			Annotations: map[string]string{priorityKey: strconv.Itoa(priority)},
		},
		Spec: v1.PodSpec{SchedulerName: "custom-scheduler", NodeName: boundTo},
		Status: v1.PodStatus{Phase: v1.PodPending},
	}
	if boundTo != "" {
		p.Status.Phase = v1.PodRunning
	}
	return p
}

var _ = Describe("Cycle", func() {
	var (
		client *fake.Client
		queue  *core.Queue
		opts   *options.Options
		rec    *test.EventRecorder
		fclock *clock.FakeClock
		cycle  *controllerscheduling.Cycle
		ctx    context.Context
	)

	BeforeEach(func() {
		client = fake.NewClient()
		queue = core.NewQueue()
		opts = options.Default()
		opts.PostEvictionWait = 10 * time.Millisecond
		rec = test.NewEventRecorder()
		fclock = clock.NewFakeClock(time.Now())
		cycle = controllerscheduling.NewCycle(client, queue, opts, rec, fclock)
		ctx = context.Background()
	})

	It("basic bind: one ready node, one pending pod", func() {
		client.AddNode(node("n1", "4", "8Gi"))
		p := pod("default", "p", 5, "")
		queue.Push(core.QueueEntry{Priority: 5, EnqueueTime: fclock.Now(), Pod: toRecord(p)})
		client.Pods["default/p"] = p

		Expect(cycle.Run(ctx)).To(Succeed())

		Expect(client.Binds).To(HaveLen(1))
		Expect(client.Binds[0].NodeName).To(Equal("n1"))
		Expect(queue.Len()).To(Equal(0))
	})

	It("priority order: higher priority binds first when only one node", func() {
		client.AddNode(node("n1", "4", "8Gi"))
		low := pod("default", "low", 1, "")
		high := pod("default", "high", 10, "")
		client.Pods["default/low"] = low
		client.Pods["default/high"] = high
		now := fclock.Now()
		queue.Push(core.QueueEntry{Priority: 1, EnqueueTime: now, Pod: toRecord(low)})
		queue.Push(core.QueueEntry{Priority: 10, EnqueueTime: now, Pod: toRecord(high)})

		Expect(cycle.Run(ctx)).To(Succeed())

		Expect(client.Binds).To(HaveLen(2))
		Expect(client.Binds[0].Pod.Name).To(Equal("high"))
		Expect(client.Binds[1].Pod.Name).To(Equal("low"))
	})

	It("cap enforced: direct bind rejected, lowest-priority in-domain victim preempted", func() {
		client.AddNode(node("n1", "4", "8Gi"))
		va := pod("default", "priority-a", 1, "n1")
		vb := pod("default", "priority-b", 2, "n1")
		incoming := pod("default", "priority-new", 5, "")
		client.Pods["default/priority-a"] = va
		client.Pods["default/priority-b"] = vb
		client.Pods["default/priority-new"] = incoming
		queue.Push(core.QueueEntry{Priority: 5, EnqueueTime: fclock.Now(), Pod: toRecord(incoming)})

		done := make(chan error, 1)
		go func() { done <- cycle.Run(ctx) }()

		Eventually(func() int { return len(client.Deletes) }).Should(Equal(1))
		fclock.Step(opts.PostEvictionWait)
		Expect(<-done).To(Succeed())

		Expect(client.Deletes[0].Name).To(Equal("priority-a"))
		Expect(client.Binds).To(HaveLen(1))
		Expect(client.Binds[0].NodeName).To(Equal("n1"))
		if _, stillThere := client.Pods["default/priority-b"]; !stillThere {
			Fail("priority-b should remain")
		}
		Expect(rec.Calls("Preempted")).To(Equal(1))
	})

	It("no victim: node fully occupied by equal-or-higher priority pods, pod stays queued with refreshed timestamp, debounced failure event fires once", func() {
		client.AddNode(node("n1", "4", "8Gi"))
		va := pod("default", "priority-a", 9, "n1")
		vb := pod("default", "priority-b", 10, "n1")
		incoming := pod("default", "priority-new", 5, "")
		client.Pods["default/priority-a"] = va
		client.Pods["default/priority-b"] = vb
		client.Pods["default/priority-new"] = incoming
		before := fclock.Now()
		queue.Push(core.QueueEntry{Priority: 5, EnqueueTime: before, Pod: toRecord(incoming)})

		Expect(cycle.Run(ctx)).To(Succeed())

		Expect(client.Deletes).To(BeEmpty())
		Expect(client.Binds).To(BeEmpty())
		Expect(queue.Len()).To(Equal(1))
		Expect(rec.Calls("FailedScheduling")).To(Equal(1))

		// A second cycle pass for the same pod, still stuck, must not re-fire the event.
		Expect(cycle.Run(ctx)).To(Succeed())
		Expect(rec.Calls("FailedScheduling")).To(Equal(1))
	})

	It("409 on bind: no retry, no requeue, no error surfaced", func() {
		client.AddNode(node("n1", "4", "8Gi"))
		p := pod("default", "p", 5, "")
		client.Pods["default/p"] = p
		client.BindOutcome = clusterapi.BindConflicted
		queue.Push(core.QueueEntry{Priority: 5, EnqueueTime: fclock.Now(), Pod: toRecord(p)})

		Expect(cycle.Run(ctx)).To(Succeed())

		Expect(client.Binds).To(BeEmpty())
		Expect(queue.Len()).To(Equal(0))
	})
})

func toRecord(p *v1.Pod) core.PodRecord {
	priority := 0
	if v, ok := p.Annotations[priorityKey]; ok {
		fmt.Sscanf(v, "%d", &priority)
	}
	return core.PodRecord{
		Identity:      core.Identity{Namespace: p.Namespace, Name: p.Name},
		SchedulerName: p.Spec.SchedulerName,
		NodeName:      p.Spec.NodeName,
		Phase:         core.Phase(p.Status.Phase),
		Priority:      priority,
	}
}
