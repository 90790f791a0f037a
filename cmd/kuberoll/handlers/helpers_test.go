package handlers

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/version"
	fakediscovery "k8s.io/client-go/discovery/fake"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/imamik/kuberoll/internal/config"
	"github.com/imamik/kuberoll/internal/hostops"
	"github.com/imamik/kuberoll/internal/platform/kube"
	"github.com/imamik/kuberoll/internal/platform/ssh"
	"github.com/imamik/kuberoll/internal/topology"
)

const madisonOutput = `   kubeadm | 1.29.3-00 | https://pkgs.k8s.io/core:/stable:/v1.29/deb  Packages
   kubeadm | 1.29.1-00 | https://pkgs.k8s.io/core:/stable:/v1.29/deb  Packages
`

// saveAndRestoreFactories restores every factory variable after the test
// and captures stdout.
func saveAndRestoreFactories(t *testing.T) *bytes.Buffer {
	t.Helper()

	origLoadConfigFile := loadConfigFile
	origFindConfigFile := findConfigFile
	origReadFile := readFile
	origNewCluster := newCluster
	origNewExecutor := newExecutor
	origNewServerLister := newServerLister
	origStdout := stdout
	origStderr := stderr

	t.Cleanup(func() {
		loadConfigFile = origLoadConfigFile
		findConfigFile = origFindConfigFile
		readFile = origReadFile
		newCluster = origNewCluster
		newExecutor = origNewExecutor
		newServerLister = origNewServerLister
		stdout = origStdout
		stderr = origStderr
	})

	out := &bytes.Buffer{}
	stdout = out
	stderr = &bytes.Buffer{}
	return out
}

// recordingExecutor answers apt-cache madison with a fixed listing and
// succeeds on everything else, unless the command contains failOn.
type recordingExecutor struct {
	mu       sync.Mutex
	commands []string
	failOn   string
}

func (e *recordingExecutor) Execute(_ context.Context, host, command string) (ssh.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, host+": "+command)

	if e.failOn != "" && strings.Contains(command, e.failOn) {
		return ssh.Result{ExitCode: 1, Stderr: "failed"}, nil
	}
	if strings.Contains(command, "apt-cache madison kubeadm") {
		return ssh.Result{Stdout: madisonOutput}, nil
	}
	return ssh.Result{}, nil
}

func (e *recordingExecutor) contains(substr string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.commands {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

func readyNode(name string, labels map[string]string) *corev1.Node {
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{{Type: corev1.NodeReady, Status: corev1.ConditionTrue}},
			NodeInfo:   corev1.NodeSystemInfo{KubeletVersion: "v1.28.4"},
		},
	}
}

func newFakeCluster() *kube.Client {
	cs := fake.NewSimpleClientset(
		readyNode("cp-1", map[string]string{"node-role.kubernetes.io/control-plane": ""}),
		readyNode("cp-2", map[string]string{"node-role.kubernetes.io/control-plane": ""}),
		readyNode("worker-1", nil),
	)
	cs.Discovery().(*fakediscovery.FakeDiscovery).FakedServerVersion = &version.Info{GitVersion: "v1.28.4"}
	return kube.NewFromClientset(cs, logr.Discard())
}

func testTopology(t *testing.T) *topology.Topology {
	t.Helper()
	topo, err := topology.New([]topology.Node{
		{Role: topology.RoleLeader, Host: "10.0.0.1", Name: "cp-1"},
		{Role: topology.RoleFollower, Host: "10.0.0.2", Name: "cp-2"},
		{Role: topology.RoleWorker, Host: "10.0.0.3", Name: "worker-1"},
	})
	if err != nil {
		t.Fatalf("topology: %v", err)
	}
	return topo
}

// newTestSession wires the real cluster client and host operations to fakes.
func newTestSession(t *testing.T, exec *recordingExecutor) *session {
	t.Helper()

	cfg := config.Default()
	cfg.Ready.PollInterval = time.Millisecond
	cfg.Ready.Timeout = 2 * time.Second

	return &session{
		cfg:     cfg,
		log:     logr.Discard(),
		cluster: newFakeCluster(),
		host:    hostops.New(exec, hostops.Options{Sudo: true, RepositoryFile: cfg.Repository.File}, logr.Discard()),
		topo:    testTopology(t),
	}
}
