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

// Package schedulererrors holds the scheduler's error taxonomy. Each kind is a distinct
// type so call sites can dispatch on it with errors.As instead of string matching.
package schedulererrors

import "fmt"

// WatchStreamFatal wraps an error that terminated the cluster event stream. It is the only
// error kind that escapes the watch loop; the process exits non-zero on it.
type WatchStreamFatal struct {
	Err error
}

func (e *WatchStreamFatal) Error() string { return fmt.Sprintf("watch stream terminated: %s", e.Err) }
func (e *WatchStreamFatal) Unwrap() error { return e.Err }

func NewWatchStreamFatal(err error) *WatchStreamFatal {
	return &WatchStreamFatal{Err: err}
}

// TransientClusterError wraps a 5xx or network error encountered on any cluster API call
// made while processing one queue entry. The entry is requeued; the cycle continues.
type TransientClusterError struct {
	Op  string
	Err error
}

func (e *TransientClusterError) Error() string {
	return fmt.Sprintf("transient error during %s: %s", e.Op, e.Err)
}
func (e *TransientClusterError) Unwrap() error { return e.Err }

func NewTransientClusterError(op string, err error) *TransientClusterError {
	return &TransientClusterError{Op: op, Err: err}
}

// MalformedQuantity is returned by pkg/quantity when a resource string matches none of the
// recognized shapes. Callers treat it as a zero contribution to a node's score, never as a
// reason to abort the cycle.
type MalformedQuantity struct {
	Value string
	Err   error
}

func (e *MalformedQuantity) Error() string {
	return fmt.Sprintf("malformed resource quantity %q: %s", e.Value, e.Err)
}
func (e *MalformedQuantity) Unwrap() error { return e.Err }

func NewMalformedQuantity(value string, err error) *MalformedQuantity {
	return &MalformedQuantity{Value: value, Err: err}
}

// NoCandidateNode indicates no ready node scored above -Inf for a pod. The scheduling cycle
// responds by attempting preemption, and requeues with a refreshed timestamp if that also
// fails.
type NoCandidateNode struct {
	PodNamespace string
	PodName      string
}

func (e *NoCandidateNode) Error() string {
	return fmt.Sprintf("no candidate node for pod %s/%s", e.PodNamespace, e.PodName)
}

func NewNoCandidateNode(namespace, name string) *NoCandidateNode {
	return &NoCandidateNode{PodNamespace: namespace, PodName: name}
}
