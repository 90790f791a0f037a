package upgrade

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/imamik/kuberoll/internal/hostops"
	"github.com/imamik/kuberoll/internal/platform/kube"
)

// recorder is a Cluster and Host that records every call in order.
// Calls are recorded as "Op(arg,arg)". failures maps a recorded call, or
// just its operation name, to the error it returns.
type recorder struct {
	mu sync.Mutex

	calls     []string
	failures  map[string]error
	drainOpts []kube.DrainOptions

	serverVersion string
	versions      []string
	// readyAfter is the number of NodeReady calls per node that report false first.
	readyAfter map[string]int
	readyCalls map[string]int
	readyErr   error
}

func newRecorder() *recorder {
	return &recorder{
		failures:      map[string]error{},
		serverVersion: "v1.28.4",
		versions:      []string{"1.29.1-00", "1.29.3-00", "1.29.2-00", "1.28.9-00"},
		readyAfter:    map[string]int{},
		readyCalls:    map[string]int{},
	}
}

func (r *recorder) record(op string, args ...any) error {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	call := fmt.Sprintf("%s(%s)", op, strings.Join(parts, ","))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	if err, ok := r.failures[call]; ok {
		return err
	}
	return r.failures[op]
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// CallsOf returns recorded calls whose operation is one of ops.
func (r *recorder) CallsOf(ops ...string) []string {
	var out []string
	for _, c := range r.Calls() {
		for _, op := range ops {
			if strings.HasPrefix(c, op+"(") {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func (r *recorder) ServerVersion(context.Context) (string, error) {
	if err := r.record("ServerVersion"); err != nil {
		return "", err
	}
	return r.serverVersion, nil
}

func (r *recorder) Drain(_ context.Context, name string, opts kube.DrainOptions) error {
	r.mu.Lock()
	r.drainOpts = append(r.drainOpts, opts)
	r.mu.Unlock()
	return r.record("Drain", name)
}

func (r *recorder) DrainOptions() []kube.DrainOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kube.DrainOptions(nil), r.drainOpts...)
}

func (r *recorder) Uncordon(_ context.Context, name string) error {
	return r.record("Uncordon", name)
}

func (r *recorder) NodeReady(_ context.Context, name string) (bool, error) {
	if err := r.record("NodeReady", name); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readyErr != nil {
		return false, r.readyErr
	}
	r.readyCalls[name]++
	return r.readyCalls[name] > r.readyAfter[name], nil
}

func (r *recorder) ListNodes(context.Context) ([]kube.NodeInfo, error) {
	return nil, r.record("ListNodes")
}

func (r *recorder) RewriteRepository(_ context.Context, host, channel string) error {
	return r.record("RewriteRepository", host, channel)
}

func (r *recorder) RefreshIndex(_ context.Context, host string) error {
	return r.record("RefreshIndex", host)
}

func (r *recorder) ListAvailableVersions(_ context.Context, host, pkg string) ([]string, error) {
	if err := r.record("ListAvailableVersions", host, pkg); err != nil {
		return nil, err
	}
	return r.versions, nil
}

func (r *recorder) Unhold(_ context.Context, host string, pkgs ...string) error {
	return r.record("Unhold", host, strings.Join(pkgs, " "))
}

func (r *recorder) Hold(_ context.Context, host string, pkgs ...string) error {
	return r.record("Hold", host, strings.Join(pkgs, " "))
}

func (r *recorder) Install(_ context.Context, host string, pkgs ...hostops.Package) error {
	names := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		names = append(names, p.String())
	}
	return r.record("Install", host, strings.Join(names, " "))
}

func (r *recorder) UpgradeApply(_ context.Context, host, version string, etcdUpgrade bool) error {
	return r.record("UpgradeApply", host, version, etcdUpgrade)
}

func (r *recorder) UpgradeNode(_ context.Context, host string) error {
	return r.record("UpgradeNode", host)
}

func (r *recorder) DaemonReload(_ context.Context, host string) error {
	return r.record("DaemonReload", host)
}

func (r *recorder) RestartService(_ context.Context, host, service string) error {
	return r.record("RestartService", host, service)
}

// eventLog is an Observer that keeps every event.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Event(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) Progress(Phase, int, int) {}

func (l *eventLog) OfType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
