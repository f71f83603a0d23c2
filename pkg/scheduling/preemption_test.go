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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	core "github.com/kaus-io/cluster-priority-scheduler/pkg/scheduling"
)

var _ = Describe("Planner", func() {
	var planner *core.Planner
	ready := map[string]bool{"n1": true}

	BeforeEach(func() {
		planner = core.NewPlanner("priority")
	})

	It("selects the lowest-priority eligible victim strictly below the incoming priority", func() {
		incoming := core.PodRecord{Identity: core.Identity{Name: "priority-new"}, Priority: 5}
		pods := []core.PodRecord{
			{Identity: core.Identity{Name: "priority-a"}, NodeName: "n1", Phase: core.PhaseRunning, Priority: 1},
			{Identity: core.Identity{Name: "priority-b"}, NodeName: "n1", Phase: core.PhaseRunning, Priority: 2},
		}
		plan, ok := planner.Plan(incoming, pods, ready)
		Expect(ok).To(BeTrue())
		Expect(plan.Victim.Name).To(Equal("priority-a"))
		Expect(plan.NodeName).To(Equal("n1"))
	})

	It("never selects a victim at or above the incoming priority", func() {
		incoming := core.PodRecord{Identity: core.Identity{Name: "priority-new"}, Priority: 5}
		pods := []core.PodRecord{
			{Identity: core.Identity{Name: "priority-a"}, NodeName: "n1", Phase: core.PhaseRunning, Priority: 9},
			{Identity: core.Identity{Name: "priority-b"}, NodeName: "n1", Phase: core.PhaseRunning, Priority: 10},
		}
		_, ok := planner.Plan(incoming, pods, ready)
		Expect(ok).To(BeFalse())
	})

	It("ignores pods outside the preemption domain", func() {
		incoming := core.PodRecord{Identity: core.Identity{Name: "priority-new"}, Priority: 5}
		pods := []core.PodRecord{
			{Identity: core.Identity{Name: "unrelated"}, NodeName: "n1", Phase: core.PhaseRunning, Priority: 1},
		}
		_, ok := planner.Plan(incoming, pods, ready)
		Expect(ok).To(BeFalse())
	})

	It("ignores candidates on nodes that aren't ready", func() {
		incoming := core.PodRecord{Identity: core.Identity{Name: "priority-new"}, Priority: 5}
		pods := []core.PodRecord{
			{Identity: core.Identity{Name: "priority-a"}, NodeName: "n2", Phase: core.PhaseRunning, Priority: 1},
		}
		_, ok := planner.Plan(incoming, pods, ready)
		Expect(ok).To(BeFalse())
	})
})
