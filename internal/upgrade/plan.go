package upgrade

import "fmt"

// UpgradePlan is the target of a run. It is computed once on the leader and
// shared, unchanged, by every node.
//
// TargetFullVersion is the package version installed on every node
// ("1.29.10-00"); TargetShortVersion is passed to kubeadm upgrade apply
// ("v1.29.10").
type UpgradePlan struct {
	ServerVersion      string         `json:"serverVersion"`
	From               ClusterVersion `json:"from"`
	TargetMajor        uint64         `json:"targetMajor"`
	TargetMinor        uint64         `json:"targetMinor"`
	TargetFullVersion  string         `json:"targetFullVersion"`
	TargetShortVersion string         `json:"targetShortVersion"`
}

// Channel is the repository channel of the target minor, e.g. "v1.29".
func (p *UpgradePlan) Channel() string {
	return fmt.Sprintf("v%d.%d", p.TargetMajor, p.TargetMinor)
}
