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

// PreemptionPlan names the single victim to evict so incoming can take its place, and the
// node the victim (and then incoming) occupies.
type PreemptionPlan struct {
	Victim   PodRecord
	NodeName string
}

// Planner selects preemption victims under the §4.4 rule: among pods strictly lower
// priority than the incoming pod, running on a ready node, within the preemption domain,
// pick the one with the lowest priority; ties break on first encounter in the supplied
// slice (stable input ordering is the caller's responsibility, typically by node/pod list
// order from the cluster API).
type Planner struct {
	PreemptionSubstring string
}

// NewPlanner builds a Planner from the scheduler's configured preemption domain.
func NewPlanner(preemptionSubstring string) *Planner {
	return &Planner{PreemptionSubstring: preemptionSubstring}
}

// Plan returns the victim to evict for incoming, given the current live pods and the set of
// ready nodes eligible to host a replacement. ok is false when no eligible victim exists,
// in which case the scheduling cycle leaves incoming queued.
func (p *Planner) Plan(incoming PodRecord, pods []PodRecord, readyNodes map[string]bool) (PreemptionPlan, bool) {
	var victim PodRecord
	found := false

	for _, candidate := range pods {
		if !candidate.IsScheduled() || !candidate.IsLive() {
			continue
		}
		if !readyNodes[candidate.NodeName] {
			continue
		}
		if !candidate.InPreemptionDomain(p.PreemptionSubstring) {
			continue
		}
		if candidate.Priority >= incoming.Priority {
			continue
		}
		if !found || candidate.Priority < victim.Priority {
			victim = candidate
			found = true
		}
	}

	if !found {
		return PreemptionPlan{}, false
	}
	return PreemptionPlan{Victim: victim, NodeName: victim.NodeName}, true
}
