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
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/clock"

	"github.com/kaus-io/cluster-priority-scheduler/pkg/clusterapi/fake"
	controllerscheduling "github.com/kaus-io/cluster-priority-scheduler/pkg/controllers/scheduling"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/operator/options"
	core "github.com/kaus-io/cluster-priority-scheduler/pkg/scheduling"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/test"
)

func watchNode(name, cpu, mem string) *v1.Node {
	return &v1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status: v1.NodeStatus{
			Conditions:  []v1.NodeCondition{{Type: v1.NodeReady, Status: v1.ConditionTrue}},
			Allocatable: v1.ResourceList{v1.ResourceCPU: resource.MustParse(cpu), v1.ResourceMemory: resource.MustParse(mem)},
		},
	}
}

func watchPod(name string, priority int, schedulerName string, phase v1.PodPhase, boundTo string) *v1.Pod {
	return &v1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Namespace:   "default",
			Name:        name,
			Annotations: map[string]string{"scheduler.alpha.kubernetes.io/priority": strconv.Itoa(priority)},
		},
		Spec:   v1.PodSpec{SchedulerName: schedulerName, NodeName: boundTo},
		Status: v1.PodStatus{Phase: phase},
	}
}

var _ = Describe("Dispatcher", func() {
	var (
		client *fake.Client
		queue  *core.Queue
		opts   *options.Options
		cycle  *controllerscheduling.Cycle
		disp   *controllerscheduling.Dispatcher
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		client = fake.NewClient()
		queue = core.NewQueue()
		opts = options.Default()
		rec := test.NewEventRecorder()
		cycle = controllerscheduling.NewCycle(client, queue, opts, rec, clock.RealClock{})
		disp = controllerscheduling.NewDispatcher(client, queue, cycle, rec, "custom-scheduler")
		ctx, cancel = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		cancel()
	})

	It("admits only pending, unbound pods owned by this scheduler", func() {
		admitted := test.RandomName()
		client.AddNode(watchNode("n1", "4", "8Gi"))
		client.AddPod(watchPod("wrong-scheduler", 5, "other-scheduler", v1.PodPending, ""))
		client.AddPod(watchPod("already-bound", 5, "custom-scheduler", v1.PodPending, "n1"))
		client.AddPod(watchPod("not-pending", 5, "custom-scheduler", v1.PodRunning, ""))
		client.AddPod(watchPod(admitted, 5, "custom-scheduler", v1.PodPending, ""))

		go func() { _ = disp.Run(ctx) }()

		Eventually(func() int { return len(client.Binds) }).Should(Equal(1))
		Expect(client.Binds[0].Pod.Name).To(Equal(admitted))
	})

	It("frees capacity when an out-of-band deletion removes the occupant", func() {
		opts.MaxPodsPerNode = 1
		cycle.Evaluator.MaxPodsPerNode = opts.MaxPodsPerNode
		client.AddNode(watchNode("n1", "4", "8Gi"))
		client.AddPod(watchPod("priority-a", 10, "custom-scheduler", v1.PodRunning, "n1"))

		go func() { _ = disp.Run(ctx) }()

		client.AddPod(watchPod("priority-b", 5, "custom-scheduler", v1.PodPending, ""))
		Eventually(func() int { return queue.Len() }).Should(Equal(1))
		Expect(client.Binds).To(BeEmpty())

		client.RemovePod("default", "priority-a")

		Eventually(func() int { return len(client.Binds) }, time.Second).Should(Equal(1))
		Expect(client.Binds[0].Pod.Name).To(Equal("priority-b"))
		Expect(queue.Len()).To(Equal(0))
	})
})
