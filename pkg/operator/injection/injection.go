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

// Package injection carries the scheduler's process-wide singletons (parsed options, the
// cluster API client, the controller name for logging) through context.Context instead of
// globals, so tests can swap them out per-case.
package injection

import (
	"context"
	"flag"
	"os"

	"github.com/samber/lo"

	"github.com/kaus-io/cluster-priority-scheduler/pkg/clusterapi"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/operator/options"
)

type controllerNameKeyType struct{}
type clientKeyType struct{}

var controllerNameKey = controllerNameKeyType{}
var clientKey = clientKeyType{}

func WithControllerName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, controllerNameKey, name)
}

func GetControllerName(ctx context.Context) string {
	name := ctx.Value(controllerNameKey)
	if name == nil {
		return ""
	}
	return name.(string)
}

// WithOptionsOrDie registers, parses, and stashes every Injectable's flags against the
// process's own arguments (os.Args[1:]), panicking on a parse error the way a misconfigured
// control-plane binary should fail fast.
func WithOptionsOrDie(ctx context.Context, opts ...options.Injectable) context.Context {
	return WithOptionsArgsOrDie(ctx, os.Args[1:], opts...)
}

// WithOptionsArgsOrDie is WithOptionsOrDie parameterized on an explicit argument list, so
// callers (tests, in particular) don't inherit the host process's own flags.
func WithOptionsArgsOrDie(ctx context.Context, args []string, opts ...options.Injectable) context.Context {
	fs := &options.FlagSet{
		FlagSet: flag.NewFlagSet("cluster-priority-scheduler", flag.ContinueOnError),
	}
	for _, opt := range opts {
		opt.AddFlags(fs)
	}
	for _, opt := range opts {
		lo.Must0(opt.Parse(fs, args...))
	}
	for _, opt := range opts {
		ctx = opt.ToContext(ctx)
	}
	return ctx
}

func WithClusterAPI(ctx context.Context, c clusterapi.Client) context.Context {
	return context.WithValue(ctx, clientKey, c)
}

func GetClusterAPI(ctx context.Context) clusterapi.Client {
	c := ctx.Value(clientKey)
	return c.(clusterapi.Client)
}
