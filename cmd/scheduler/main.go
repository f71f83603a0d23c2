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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	v1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/clock"
	crlog "sigs.k8s.io/controller-runtime/pkg/log"
	crmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/kaus-io/cluster-priority-scheduler/pkg/clusterapi"
	controllerscheduling "github.com/kaus-io/cluster-priority-scheduler/pkg/controllers/scheduling"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/events"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/log"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/metrics"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/operator/injection"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/operator/options"
	"github.com/kaus-io/cluster-priority-scheduler/pkg/schedulererrors"
	core "github.com/kaus-io/cluster-priority-scheduler/pkg/scheduling"
)

func main() {
	kubeconfig := flag.String("kubeconfig", "", "Path to a kubeconfig file; empty uses in-cluster config.")
	logLevel := flag.String("log-level", "info", "One of debug, info, error.")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := &options.Options{}
	fs := &options.FlagSet{FlagSet: flag.CommandLine}
	opts.AddFlags(fs)
	if err := opts.Parse(fs, os.Args[1:]...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx = opts.ToContext(ctx)
	ctx = injection.WithControllerName(ctx, "cluster-priority-scheduler")
	ctx = log.SetupOrDie(ctx, *logLevel)
	logger := crlog.FromContext(ctx)

	config, err := clientcmd.BuildConfigFromFlags("", *kubeconfig)
	if err != nil {
		logger.Error(err, "failed to load cluster config")
		os.Exit(1)
	}
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		logger.Error(err, "failed to build clientset")
		os.Exit(1)
	}

	client := clusterapi.NewClient(clientset, clusterapi.WithRateLimit(float64(opts.KubeClientQPS), opts.KubeClientBurst))
	ctx = injection.WithClusterAPI(ctx, client)

	broadcaster := record.NewBroadcaster()
	broadcaster.StartRecordingToSink(&record.EventSinkImpl{Interface: clientset.CoreV1().Events("")})
	recorder := events.NewRecorder(broadcaster.NewRecorder(scheme.Scheme, v1.EventSource{Component: opts.SchedulerName}))

	metrics.MustRegister()
	go serveMetrics(ctx, logger, opts.MetricsPort)

	queue := core.NewQueue()
	cycle := controllerscheduling.NewCycle(client, queue, opts, recorder, clock.RealClock{})
	dispatcher := controllerscheduling.NewDispatcher(client, queue, cycle, recorder, opts.SchedulerName)

	logger.Info("cluster-priority-scheduler starting", "schedulerName", opts.SchedulerName)
	if err := dispatcher.Run(ctx); err != nil {
		var fatal *schedulererrors.WatchStreamFatal
		if errors.As(err, &fatal) {
			logger.Error(err, "watch stream terminated, exiting")
			os.Exit(1)
		}
		logger.Error(err, "dispatcher exited with error")
		os.Exit(1)
	}
	logger.Info("cluster-priority-scheduler shutting down")
}

func serveMetrics(ctx context.Context, logger logr.Logger, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(crmetrics.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(err, "metrics server exited")
	}
}
