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

// Package scheduling holds the core, I/O-free decision logic of the scheduler: the node
// evaluator (readiness, occupancy, score), the priority queue, and the preemption planner.
// None of it talks to the cluster directly — it operates on PodRecord/NodeRecord snapshots
// handed in by the controller that owns the cluster connection, keeping every scheduling
// decision a pure function of its inputs.
package scheduling

import (
	"strings"
	"time"
)

// Phase mirrors the subset of v1.PodPhase the core consumes.
type Phase string

const (
	PhasePending   Phase = "Pending"
	PhaseRunning   Phase = "Running"
	PhaseSucceeded Phase = "Succeeded"
	PhaseFailed    Phase = "Failed"
	PhaseUnknown   Phase = "Unknown"
)

// Identity is the queue's equality key: a pod's (namespace, name) pair, globally unique
// among live pods.
type Identity struct {
	Namespace string
	Name      string
}

func (id Identity) String() string {
	return id.Namespace + "/" + id.Name
}

// PodRecord is the subset of a pod object the scheduling core consumes.
type PodRecord struct {
	Identity
	SchedulerName string
	NodeName      string
	Phase         Phase
	Priority      int
}

// IsScheduled reports whether the pod already carries a node assignment.
func (p PodRecord) IsScheduled() bool {
	return p.NodeName != ""
}

// IsLive reports whether a pod is neither Succeeded nor Failed, and so still counts toward
// a node's occupancy.
func (p PodRecord) IsLive() bool {
	return p.Phase != PhaseSucceeded && p.Phase != PhaseFailed
}

// InPreemptionDomain reports whether the pod's name, lowercased, contains substr. This is
// deliberately a narrow, configurable name predicate rather than a real workload
// classification.
func (p PodRecord) InPreemptionDomain(substr string) bool {
	if substr == "" {
		return false
	}
	return strings.Contains(strings.ToLower(p.Name), strings.ToLower(substr))
}

// ConditionType mirrors the node condition types the evaluator reads.
type ConditionType string

const (
	ConditionReady ConditionType = "Ready"
)

// ConditionStatus mirrors v1.ConditionStatus.
type ConditionStatus string

const (
	ConditionTrue    ConditionStatus = "True"
	ConditionFalse   ConditionStatus = "False"
	ConditionUnknown ConditionStatus = "Unknown"
)

// NodeCondition is one typed status entry on a node.
type NodeCondition struct {
	Type   ConditionType
	Status ConditionStatus
}

// NodeRecord is the subset of a node object the scheduling core consumes.
type NodeRecord struct {
	Name        string
	Conditions  []NodeCondition
	Allocatable map[string]string
}

// QueueEntry is one pending pod sitting in the priority queue.
type QueueEntry struct {
	Priority    int
	EnqueueTime time.Time
	Pod         PodRecord
}

// Identity returns the queue entry's removal/equality key.
func (e QueueEntry) Identity() Identity {
	return e.Pod.Identity
}
