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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	core "github.com/kaus-io/cluster-priority-scheduler/pkg/scheduling"
)

func entry(name string, priority int, t time.Time) core.QueueEntry {
	return core.QueueEntry{
		Priority:    priority,
		EnqueueTime: t,
		Pod:         core.PodRecord{Identity: core.Identity{Namespace: "default", Name: name}},
	}
}

var _ = Describe("Queue", func() {
	var q *core.Queue
	base := time.Unix(1700000000, 0)

	BeforeEach(func() {
		q = core.NewQueue()
	})

	It("pops the highest priority first", func() {
		q.Push(entry("low", 1, base))
		q.Push(entry("high", 10, base))

		first, ok := q.Pop()
		Expect(ok).To(BeTrue())
		Expect(first.Pod.Name).To(Equal("high"))

		second, ok := q.Pop()
		Expect(ok).To(BeTrue())
		Expect(second.Pod.Name).To(Equal("low"))
	})

	It("breaks equal priority ties by earlier enqueue time", func() {
		q.Push(entry("later", 5, base.Add(time.Second)))
		q.Push(entry("earlier", 5, base))

		first, ok := q.Pop()
		Expect(ok).To(BeTrue())
		Expect(first.Pod.Name).To(Equal("earlier"))
	})

	It("keeps at most one entry per identity, preserving the original enqueue time", func() {
		q.Push(entry("p", 1, base))
		q.Push(entry("p", 9, base.Add(time.Minute)))

		Expect(q.Len()).To(Equal(1))
		popped, ok := q.Pop()
		Expect(ok).To(BeTrue())
		Expect(popped.Priority).To(Equal(9))
		Expect(popped.EnqueueTime).To(Equal(base))
	})

	It("removes an identity idempotently", func() {
		q.Push(entry("p", 1, base))

		Expect(q.Remove(core.Identity{Namespace: "default", Name: "p"})).To(BeTrue())
		Expect(q.Len()).To(Equal(0))
		Expect(q.Remove(core.Identity{Namespace: "default", Name: "p"})).To(BeFalse())
	})

	It("drains every entry in pop order and empties the queue", func() {
		q.Push(entry("low", 1, base))
		q.Push(entry("high", 10, base))

		drained := q.Drain()
		Expect(drained).To(HaveLen(2))
		Expect(drained[0].Pod.Name).To(Equal("high"))
		Expect(drained[1].Pod.Name).To(Equal("low"))
		Expect(q.Len()).To(Equal(0))
	})
})
