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

// Package fake is a hand-rolled, in-memory clusterapi.Client used by controller and
// scheduling-cycle tests in place of a generated mock.
package fake

import (
	"context"
	"sync"

	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kaus-io/cluster-priority-scheduler/pkg/clusterapi"
)

// Client is an in-memory clusterapi.Client. The zero value is not usable; use NewClient.
type Client struct {
	mu sync.Mutex

	Pods  map[string]*v1.Pod // keyed by namespace/name
	Nodes map[string]*v1.Node

	events chan clusterapi.PodEvent

	// Binds records every committed Bind call and Deletes every Delete call, in order, for
	// test assertions. Bind calls that fail or conflict are not recorded.
	Binds   []BindCall
	Deletes []*v1.Pod

	// BindErr, when set, is returned by every Bind call instead of mutating state.
	BindErr error
	// BindOutcome, when set to clusterapi.BindConflicted, makes every Bind call report a
	// conflict without mutating state. Any other value leaves Bind committing.
	BindOutcome clusterapi.BindOutcome
}

// BindCall records one successful Bind invocation.
type BindCall struct {
	Pod      *v1.Pod
	NodeName string
}

// NewClient returns an empty fake Client.
func NewClient() *Client {
	return &Client{
		Pods:   map[string]*v1.Pod{},
		Nodes:  map[string]*v1.Node{},
		events: make(chan clusterapi.PodEvent, 64),
	}
}

func key(namespace, name string) string { return namespace + "/" + name }

// AddPod seeds a pod and emits an ADDED watch event for it.
func (c *Client) AddPod(pod *v1.Pod) {
	c.mu.Lock()
	c.Pods[key(pod.Namespace, pod.Name)] = pod
	c.mu.Unlock()
	c.emit(clusterapi.EventAdded, pod)
}

// UpdatePod replaces a seeded pod and emits a MODIFIED watch event for it.
func (c *Client) UpdatePod(pod *v1.Pod) {
	c.mu.Lock()
	c.Pods[key(pod.Namespace, pod.Name)] = pod
	c.mu.Unlock()
	c.emit(clusterapi.EventModified, pod)
}

// RemovePod simulates an externally observed deletion: it drops the pod and emits a DELETED
// watch event for it, distinct from Delete (which is the scheduler's own eviction call).
func (c *Client) RemovePod(namespace, name string) {
	c.mu.Lock()
	pod, ok := c.Pods[key(namespace, name)]
	if ok {
		delete(c.Pods, key(namespace, name))
	}
	c.mu.Unlock()
	if !ok {
		pod = &v1.Pod{ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name}}
	}
	c.emit(clusterapi.EventDeleted, pod)
}

// AddNode seeds a node.
func (c *Client) AddNode(node *v1.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Nodes[node.Name] = node
}

func (c *Client) emit(t clusterapi.EventType, pod *v1.Pod) {
	c.events <- clusterapi.PodEvent{Type: t, Pod: pod.DeepCopy()}
}

func (c *Client) ListPods(_ context.Context) ([]*v1.Pod, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*v1.Pod, 0, len(c.Pods))
	for _, p := range c.Pods {
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) ListNodes(_ context.Context) ([]*v1.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*v1.Node, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		out = append(out, n)
	}
	return out, nil
}

func (c *Client) WatchPods(ctx context.Context) (<-chan clusterapi.PodEvent, error) {
	out := make(chan clusterapi.PodEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-c.events:
				if !ok {
					return
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) Bind(_ context.Context, pod *v1.Pod, nodeName string) (clusterapi.BindOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BindErr != nil {
		return clusterapi.BindFailed, c.BindErr
	}
	if c.BindOutcome == clusterapi.BindConflicted {
		return clusterapi.BindConflicted, nil
	}
	c.Binds = append(c.Binds, BindCall{Pod: pod, NodeName: nodeName})
	bound := pod.DeepCopy()
	bound.Spec.NodeName = nodeName
	c.Pods[key(pod.Namespace, pod.Name)] = bound
	return clusterapi.BindCommitted, nil
}

func (c *Client) Delete(_ context.Context, pod *v1.Pod) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Deletes = append(c.Deletes, pod)
	delete(c.Pods, key(pod.Namespace, pod.Name))
	return nil
}
