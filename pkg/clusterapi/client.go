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

// Package clusterapi is the scheduler's one seam onto the cluster: listing pods and nodes,
// watching the pod event stream, binding, and deleting. Nothing above this package imports
// client-go directly, so the scheduling logic never depends on how the cluster connection
// is actually made.
package clusterapi

import (
	"context"

	v1 "k8s.io/api/core/v1"
)

// EventType classifies a watch notification.
type EventType string

const (
	EventAdded    EventType = "ADDED"
	EventModified EventType = "MODIFIED"
	EventDeleted  EventType = "DELETED"
)

// PodEvent is one notification off the pod watch stream.
type PodEvent struct {
	Type EventType
	Pod  *v1.Pod
}

// BindOutcome is an explicit result variant for a bind attempt, used in place of treating
// the cluster API's 409 response as an exceptional error.
type BindOutcome int

const (
	BindCommitted BindOutcome = iota
	BindConflicted
	BindFailed
)

// Client is the cluster surface the scheduling controllers consume.
type Client interface {
	ListPods(ctx context.Context) ([]*v1.Pod, error)
	ListNodes(ctx context.Context) ([]*v1.Node, error)
	WatchPods(ctx context.Context) (<-chan PodEvent, error)
	// Bind returns BindFailed alongside a non-nil error only for failures that are neither
	// a commit nor a conflict.
	Bind(ctx context.Context, pod *v1.Pod, nodeName string) (BindOutcome, error)
	Delete(ctx context.Context, pod *v1.Pod) error
}
