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

package clusterapi

import (
	"context"
	"fmt"

	"github.com/awslabs/operatorpkg/option"
	"golang.org/x/time/rate"
	v1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/kaus-io/cluster-priority-scheduler/pkg/schedulererrors"
)

// kubeClient is the client-go-backed Client implementation. It owns its own client-side
// rate limiter in front of the shared clientset, independent of client-go's own QPS/Burst
// knobs on rest.Config. List, bind and delete calls all draw from that one limiter; opening
// the watch does not.
type kubeClient struct {
	clientset kubernetes.Interface
	limiter   *rate.Limiter
}

// ClientOptions configures NewClient, resolved via functional options.
type ClientOptions struct {
	QPS   float64
	Burst int
}

const (
	defaultQPS   = 50
	defaultBurst = 100
)

// WithRateLimit overrides the client-side smoothed rate and burst applied to bind/delete/list
// calls. Unset or non-positive values fall back to defaultQPS/defaultBurst.
func WithRateLimit(qps float64, burst int) option.Function[ClientOptions] {
	return func(o *ClientOptions) {
		o.QPS = qps
		o.Burst = burst
	}
}

// NewClient builds a Client around a client-go clientset.
func NewClient(clientset kubernetes.Interface, opts ...option.Function[ClientOptions]) Client {
	o := option.Resolve(opts...)
	qps, burst := o.QPS, o.Burst
	if qps <= 0 {
		qps = defaultQPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &kubeClient{
		clientset: clientset,
		limiter:   rate.NewLimiter(rate.Limit(qps), burst),
	}
}

func (k *kubeClient) wait(ctx context.Context) error {
	return k.limiter.Wait(ctx)
}

func (k *kubeClient) ListPods(ctx context.Context) ([]*v1.Pod, error) {
	if err := k.wait(ctx); err != nil {
		return nil, err
	}
	list, err := k.clientset.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, classify("list pods", err)
	}
	out := make([]*v1.Pod, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, &list.Items[i])
	}
	return out, nil
}

func (k *kubeClient) ListNodes(ctx context.Context) ([]*v1.Node, error) {
	if err := k.wait(ctx); err != nil {
		return nil, err
	}
	list, err := k.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, classify("list nodes", err)
	}
	out := make([]*v1.Node, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, &list.Items[i])
	}
	return out, nil
}

// WatchPods opens a long-lived watch over every pod in the cluster. The returned channel is
// closed when ctx is cancelled or the underlying stream ends.
func (k *kubeClient) WatchPods(ctx context.Context) (<-chan PodEvent, error) {
	w, err := k.clientset.CoreV1().Pods(metav1.NamespaceAll).Watch(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, schedulererrors.NewWatchStreamFatal(fmt.Errorf("opening pod watch: %w", err))
	}
	out := make(chan PodEvent)
	go func() {
		defer close(out)
		defer w.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-w.ResultChan():
				if !ok {
					return
				}
				pod, ok := evt.Object.(*v1.Pod)
				if !ok {
					continue
				}
				select {
				case out <- PodEvent{Type: EventType(evt.Type), Pod: pod}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (k *kubeClient) Bind(ctx context.Context, pod *v1.Pod, nodeName string) (BindOutcome, error) {
	if err := k.wait(ctx); err != nil {
		return BindFailed, err
	}
	binding := &v1.Binding{
		ObjectMeta: metav1.ObjectMeta{Name: pod.Name, Namespace: pod.Namespace, UID: pod.UID},
		Target:     v1.ObjectReference{Kind: "Node", APIVersion: "v1", Name: nodeName},
	}
	err := k.clientset.CoreV1().Pods(pod.Namespace).Bind(ctx, binding, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsConflict(err) || apierrors.IsAlreadyExists(err) {
			return BindConflicted, nil
		}
		return BindFailed, classify("bind pod", err)
	}
	return BindCommitted, nil
}

func (k *kubeClient) Delete(ctx context.Context, pod *v1.Pod) error {
	if err := k.wait(ctx); err != nil {
		return err
	}
	zero := int64(0)
	foreground := metav1.DeletePropagationForeground
	err := k.clientset.CoreV1().Pods(pod.Namespace).Delete(ctx, pod.Name, metav1.DeleteOptions{
		GracePeriodSeconds: &zero,
		PropagationPolicy:  &foreground,
	})
	if err != nil {
		if apierrors.IsNotFound(err) || apierrors.IsGone(err) {
			return nil
		}
		return classify("delete pod", err)
	}
	return nil
}

// classify wraps anything that isn't a recognized terminal outcome as a TransientClusterError
// so the scheduling cycle requeues the entry instead of aborting the whole pass.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	return schedulererrors.NewTransientClusterError(op, err)
}
