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
	"math"

	"github.com/samber/lo"

	"github.com/kaus-io/cluster-priority-scheduler/pkg/quantity"
)

const (
	// ResourceCPU and ResourceMemory are the allocatable dimensions the evaluator reads.
	ResourceCPU    = "cpu"
	ResourceMemory = "memory"

	gibi = 1 << 30
)

// Evaluator scores nodes for pod placement under a fixed occupancy cap and preemption
// domain predicate. It holds no cluster state of its own; every call takes the node/pod
// snapshot the caller hands it, so results always reflect the latest list.
type Evaluator struct {
	MaxPodsPerNode      int
	PreemptionSubstring string
}

// NewEvaluator builds an Evaluator from the scheduler's configured policy.
func NewEvaluator(maxPodsPerNode int, preemptionSubstring string) *Evaluator {
	return &Evaluator{MaxPodsPerNode: maxPodsPerNode, PreemptionSubstring: preemptionSubstring}
}

// IsReady reports whether node carries a Ready=True condition. Other conditions (e.g.
// MemoryPressure) are ignored.
func IsReady(node NodeRecord) bool {
	for _, c := range node.Conditions {
		if c.Type == ConditionReady && c.Status == ConditionTrue {
			return true
		}
	}
	return false
}

// Occupancy counts the live, preemption-domain pods currently bound to node among pods.
func (e *Evaluator) Occupancy(node NodeRecord, pods []PodRecord) int {
	return len(lo.Filter(pods, func(p PodRecord, _ int) bool {
		return p.IsLive() && p.NodeName == node.Name && p.InPreemptionDomain(e.PreemptionSubstring)
	}))
}

// Score returns the node's placement score, or math.Inf(-1) once occupancy reaches
// MaxPodsPerNode. The score otherwise favors larger nodes: allocatable CPU cores plus
// allocatable memory normalized to GiB. pods is the live pod set used for occupancy
// accounting (typically everything bound to this node).
func (e *Evaluator) Score(node NodeRecord, pods []PodRecord) float64 {
	if e.Occupancy(node, pods) >= e.MaxPodsPerNode {
		return math.Inf(-1)
	}
	cpu := quantity.MustParse(node.Allocatable[ResourceCPU])
	mem := quantity.MustParse(node.Allocatable[ResourceMemory])
	return cpu + mem/gibi
}

// BestNode returns the ready node with the highest finite score, in encounter
// order on ties, and whether one was found.
func (e *Evaluator) BestNode(nodes []NodeRecord, pods []PodRecord) (NodeRecord, bool) {
	best := math.Inf(-1)
	var bestNode NodeRecord
	found := false
	for _, n := range nodes {
		if !IsReady(n) {
			continue
		}
		score := e.Score(n, pods)
		if math.IsInf(score, -1) {
			continue
		}
		if !found || score > best {
			best = score
			bestNode = n
			found = true
		}
	}
	return bestNode, found
}
