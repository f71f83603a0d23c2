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

// Package events turns scheduling outcomes into Kubernetes events on the pods involved,
// deduped so a flapping condition doesn't spam the object's event list.
package events

import (
	"fmt"

	v1 "k8s.io/api/core/v1"
)

// PodBound fires when a pod is successfully bound to a node.
func PodBound(pod *v1.Pod, nodeName string) Event {
	return Event{
		InvolvedObject: pod,
		Type:           v1.EventTypeNormal,
		Reason:         "Scheduled",
		Message:        fmt.Sprintf("Successfully assigned %s/%s to %s", pod.Namespace, pod.Name, nodeName),
		DedupeValues:   []string{string(pod.UID), nodeName},
	}
}

// PodFailedToSchedule fires when a full cycle pass leaves a pod without a node.
func PodFailedToSchedule(pod *v1.Pod, err error) Event {
	return Event{
		InvolvedObject: pod,
		Type:           v1.EventTypeWarning,
		Reason:         "FailedScheduling",
		Message:        fmt.Sprintf("no candidate node: %s", err),
		DedupeValues:   []string{string(pod.UID), err.Error()},
	}
}

// PodPreempted fires on the victim when it is evicted to make room for a higher-priority pod.
func PodPreempted(victim *v1.Pod, evictor string) Event {
	return Event{
		InvolvedObject: victim,
		Type:           v1.EventTypeNormal,
		Reason:         "Preempted",
		Message:        fmt.Sprintf("evicted to make room for %s", evictor),
		DedupeValues:   []string{string(victim.UID), evictor},
	}
}

// BindConflict fires when a bind attempt loses a race to another scheduler (409).
func BindConflict(pod *v1.Pod, nodeName string) Event {
	return Event{
		InvolvedObject: pod,
		Type:           v1.EventTypeNormal,
		Reason:         "BindConflict",
		Message:        fmt.Sprintf("pod already bound before our bind to %s landed", nodeName),
		DedupeValues:   []string{string(pod.UID), nodeName},
	}
}
