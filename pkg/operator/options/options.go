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

// Package options holds the scheduler's CLI flags / environment variables, following the
// FlagSet + Injectable pattern the rest of the control-plane stack uses: one struct per
// concern, registered into a shared flag.FlagSet, then parsed once and stashed in context.
package options

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/imdario/mergo"
)

// Injectable is implemented by every options struct the operator bootstraps with.
type Injectable interface {
	AddFlags(fs *FlagSet)
	Parse(fs *FlagSet, args ...string) error
	ToContext(ctx context.Context) context.Context
}

// FlagSet wraps the standard flag.FlagSet so Injectables can share env-var-aware helpers.
type FlagSet struct {
	*flag.FlagSet
}

func (fs *FlagSet) StringVarWithEnv(p *string, name, envVar, val, usage string) {
	fs.StringVar(p, name, withDefaultString(envVar, val), usage)
}

func (fs *FlagSet) IntVarWithEnv(p *int, name, envVar string, val int, usage string) {
	fs.IntVar(p, name, withDefaultInt(envVar, val), usage)
}

func (fs *FlagSet) DurationVarWithEnv(p *time.Duration, name, envVar string, val time.Duration, usage string) {
	fs.DurationVar(p, name, withDefaultDuration(envVar, val), usage)
}

func withDefaultString(envVar, val string) string {
	if v, ok := os.LookupEnv(envVar); ok {
		return v
	}
	return val
}

func withDefaultInt(envVar string, val int) int {
	v, ok := os.LookupEnv(envVar)
	if !ok {
		return val
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return val
	}
	return n
}

func withDefaultDuration(envVar string, val time.Duration) time.Duration {
	v, ok := os.LookupEnv(envVar)
	if !ok {
		return val
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return val
	}
	return d
}

// Options holds every scheduler policy knob configurable via flag or environment variable.
type Options struct {
	SchedulerName             string
	MaxPodsPerNode            int
	PreemptionDomainSubstring string
	PostEvictionWait          time.Duration
	PriorityAnnotationKey     string
	MetricsPort               int
	KubeClientQPS             int
	KubeClientBurst           int
}

// Default returns the baseline Options, the same values AddFlags falls back to when no
// flag or environment variable overrides them.
func Default() *Options {
	return &Options{
		SchedulerName:             "custom-scheduler",
		MaxPodsPerNode:            2,
		PreemptionDomainSubstring: "priority",
		PostEvictionWait:          time.Second,
		PriorityAnnotationKey:     "scheduler.alpha.kubernetes.io/priority",
		MetricsPort:               8080,
		KubeClientQPS:             50,
		KubeClientBurst:           100,
	}
}

var _ Injectable = (*Options)(nil)

func (o *Options) AddFlags(fs *FlagSet) {
	d := Default()
	fs.StringVarWithEnv(&o.SchedulerName, "scheduler-name", "SCHEDULER_NAME", d.SchedulerName,
		"Only pods whose spec.schedulerName matches this value are considered.")
	fs.IntVarWithEnv(&o.MaxPodsPerNode, "max-pods-per-node", "MAX_PODS_PER_NODE", d.MaxPodsPerNode,
		"A node scores -Inf once this many live, in-domain pods are bound to it.")
	fs.StringVarWithEnv(&o.PreemptionDomainSubstring, "preemption-domain-substring", "PREEMPTION_DOMAIN_SUBSTRING", d.PreemptionDomainSubstring,
		"Pods whose name contains this substring, case-insensitive, are occupancy- and preemption-eligible. Empty disables preemption.")
	fs.DurationVarWithEnv(&o.PostEvictionWait, "post-eviction-wait", "POST_EVICTION_WAIT", d.PostEvictionWait,
		"Time to wait after evicting a victim before binding its replacement.")
	fs.StringVarWithEnv(&o.PriorityAnnotationKey, "priority-annotation-key", "PRIORITY_ANNOTATION_KEY", d.PriorityAnnotationKey,
		"Pod annotation read as the integer scheduling priority; missing or malformed values default to 0.")
	fs.IntVarWithEnv(&o.MetricsPort, "metrics-port", "METRICS_PORT", d.MetricsPort,
		"Port the Prometheus metrics endpoint binds to.")
	fs.IntVarWithEnv(&o.KubeClientQPS, "kube-client-qps", "KUBE_CLIENT_QPS", d.KubeClientQPS,
		"Smoothed client-side rate limit, in requests per second, applied to the cluster API client.")
	fs.IntVarWithEnv(&o.KubeClientBurst, "kube-client-burst", "KUBE_CLIENT_BURST", d.KubeClientBurst,
		"Maximum burst allowed above the smoothed client-side rate limit.")
}

func (o *Options) Parse(fs *FlagSet, args ...string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		return fmt.Errorf("parsing flags: %w", err)
	}
	if o.MaxPodsPerNode <= 0 {
		return fmt.Errorf("max-pods-per-node must be positive, got %d", o.MaxPodsPerNode)
	}
	if o.PostEvictionWait < 0 {
		return fmt.Errorf("post-eviction-wait must be non-negative, got %s", o.PostEvictionWait)
	}
	// Fill in anything still zero-valued (e.g. constructed directly by a test) from the
	// defaults, the same merge-over-defaults idiom config layers in this stack use. An empty
	// preemption domain and a zero post-eviction wait are valid settings and are kept.
	substr, wait := o.PreemptionDomainSubstring, o.PostEvictionWait
	if err := mergo.Merge(o, Default()); err != nil {
		return err
	}
	o.PreemptionDomainSubstring, o.PostEvictionWait = substr, wait
	return nil
}

type optionsKey struct{}

func (o *Options) ToContext(ctx context.Context) context.Context {
	return ToContext(ctx, o)
}

func ToContext(ctx context.Context, o *Options) context.Context {
	return context.WithValue(ctx, optionsKey{}, o)
}

// FromContext retrieves the Options a WithOptionsOrDie call stashed earlier. It panics if
// none is present, the same contract the rest of the context-injection helpers use.
func FromContext(ctx context.Context) *Options {
	v := ctx.Value(optionsKey{})
	if v == nil {
		panic("options not present in context")
	}
	return v.(*Options)
}
