package kube

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/kubectl/pkg/drain"

	"github.com/imamik/kuberoll/internal/logging"
)

const nodeRoleLabelPrefix = "node-role.kubernetes.io/"

// DrainOptions is the eviction policy for one drain.
type DrainOptions struct {
	IgnoreDaemonSets   bool
	DeleteEmptyDirData bool
	Force              bool
	// GracePeriodSeconds below zero uses each pod's own grace period.
	GracePeriodSeconds int
	// Timeout bounds the eviction. Zero waits forever.
	Timeout time.Duration
}

// NodeInfo summarizes a node for listing.
type NodeInfo struct {
	Name           string
	Ready          bool
	Schedulable    bool
	KubeletVersion string
	Roles          []string
}

// Client wraps the Kubernetes API operations of an upgrade.
type Client struct {
	clientset kubernetes.Interface
	log       logr.Logger
}

// NewFromKubeconfig creates a Client from a kubeconfig file. An empty path
// uses the default loading rules (KUBECONFIG, then ~/.kube/config).
func NewFromKubeconfig(path string, log logr.Logger) (*Client, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if path != "" {
		rules.ExplicitPath = path
	}
	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return NewFromClientset(clientset, log), nil
}

// NewFromClientset wraps an existing clientset. Tests pass a fake.
func NewFromClientset(clientset kubernetes.Interface, log logr.Logger) *Client {
	return &Client{clientset: clientset, log: log.WithName("kube")}
}

// ServerVersion returns the API server's git version, e.g. "v1.28.4".
func (c *Client) ServerVersion(_ context.Context) (string, error) {
	info, err := c.clientset.Discovery().ServerVersion()
	if err != nil {
		return "", fmt.Errorf("failed to get server version: %w", err)
	}
	return info.GitVersion, nil
}

// Drain cordons the node and evicts its pods according to opts.
func (c *Client) Drain(ctx context.Context, name string, opts DrainOptions) error {
	log := c.log.WithValues("node", name)

	node, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get node %s: %w", name, err)
	}

	helper := c.helper(ctx, log, opts)
	if err := drain.RunCordonOrUncordon(helper, node, true); err != nil {
		return fmt.Errorf("failed to cordon node %s: %w", name, err)
	}

	pods, errs := helper.GetPodsForDeletion(name)
	if len(errs) != 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return fmt.Errorf("cannot drain node %s: %s", name, strings.Join(msgs, "; "))
	}
	for _, w := range pods.Warnings() {
		log.Info("drain warning", "warning", w)
	}

	toDelete := pods.Pods()
	if len(toDelete) == 0 {
		log.V(1).Info("no workload present")
		return nil
	}

	log.Info("evicting pods", "count", len(toDelete))
	if err := helper.DeleteOrEvictPods(toDelete); err != nil {
		return fmt.Errorf("failed to evict pods from node %s: %w", name, err)
	}
	return nil
}

// Uncordon marks the node schedulable again.
func (c *Client) Uncordon(ctx context.Context, name string) error {
	node, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get node %s: %w", name, err)
	}

	helper := c.helper(ctx, c.log.WithValues("node", name), DrainOptions{})
	if err := drain.RunCordonOrUncordon(helper, node, false); err != nil {
		return fmt.Errorf("failed to uncordon node %s: %w", name, err)
	}
	return nil
}

// NodeReady reports whether the node's Ready condition is True.
func (c *Client) NodeReady(ctx context.Context, name string) (bool, error) {
	node, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to get node %s: %w", name, err)
	}
	return isNodeReady(node), nil
}

// ListNodes returns all nodes sorted by name.
func (c *Client) ListNodes(ctx context.Context) ([]NodeInfo, error) {
	list, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	nodes := make([]NodeInfo, 0, len(list.Items))
	for i := range list.Items {
		n := &list.Items[i]
		nodes = append(nodes, NodeInfo{
			Name:           n.Name,
			Ready:          isNodeReady(n),
			Schedulable:    !n.Spec.Unschedulable,
			KubeletVersion: n.Status.NodeInfo.KubeletVersion,
			Roles:          nodeRoles(n),
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes, nil
}

func (c *Client) helper(ctx context.Context, log logr.Logger, opts DrainOptions) *drain.Helper {
	h := &drain.Helper{
		Ctx:                 ctx,
		Client:              c.clientset,
		Force:               opts.Force,
		GracePeriodSeconds:  opts.GracePeriodSeconds,
		IgnoreAllDaemonSets: opts.IgnoreDaemonSets,
		DeleteEmptyDirData:  opts.DeleteEmptyDirData,
		Timeout:             opts.Timeout,
		Out:                 logging.Writer{Log: log, Msg: "drain"},
		ErrOut:              logging.Writer{Log: log, Msg: "drain error"},
	}
	h.OnPodDeletionOrEvictionFinished = func(pod *corev1.Pod, usingEviction bool, err error) {
		if err != nil {
			return
		}
		verb := "deleted"
		if usingEviction {
			verb = "evicted"
		}
		log.V(1).Info("pod "+verb, "pod", pod.Namespace+"/"+pod.Name)
	}
	return h
}

func isNodeReady(node *corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

func nodeRoles(node *corev1.Node) []string {
	var roles []string
	for k := range node.Labels {
		if role, ok := strings.CutPrefix(k, nodeRoleLabelPrefix); ok && role != "" {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	return roles
}
