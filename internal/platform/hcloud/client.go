package hcloud

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// Server is the subset of a Hetzner Cloud server used for discovery.
type Server struct {
	Name      string
	Labels    map[string]string
	PublicIP  string
	PrivateIP string
}

// Address returns the public IPv4 if the server has one, else its first private IP.
func (s Server) Address() string {
	if s.PublicIP != "" {
		return s.PublicIP
	}
	return s.PrivateIP
}

// ServerLister lists servers by label.
type ServerLister interface {
	ListServers(ctx context.Context, labels map[string]string) ([]Server, error)
}

// Client implements ServerLister using the Hetzner Cloud API.
type Client struct {
	client *hcloud.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a Client authenticated with token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		client: hcloud.NewClient(hcloud.WithToken(token), hcloud.WithApplication("kuberoll", "")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListServers returns all servers matching every label, sorted by name.
func (c *Client) ListServers(ctx context.Context, labels map[string]string) ([]Server, error) {
	servers, err := c.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: LabelSelector(labels)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	out := make([]Server, 0, len(servers))
	for _, s := range servers {
		out = append(out, toServer(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func toServer(s *hcloud.Server) Server {
	srv := Server{Name: s.Name, Labels: s.Labels}
	if ip := s.PublicNet.IPv4.IP; ip != nil && !ip.IsUnspecified() {
		srv.PublicIP = ip.String()
	}
	if len(s.PrivateNet) > 0 && s.PrivateNet[0].IP != nil {
		srv.PrivateIP = s.PrivateNet[0].IP.String()
	}
	return srv
}

// LabelSelector converts labels to a Hetzner Cloud label selector.
// Keys are sorted so the selector is stable.
func LabelSelector(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, labels[k]))
	}
	return strings.Join(parts, ",")
}
