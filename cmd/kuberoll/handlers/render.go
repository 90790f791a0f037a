package handlers

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/kuberoll/internal/platform/kube"
	"github.com/imamik/kuberoll/internal/upgrade"
)

var (
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorBlue  = lipgloss.Color("#3b82f6")
	colorDim   = lipgloss.Color("#6b7280")
	colorWhite = lipgloss.Color("#f9fafb")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	greenStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	redStyle     = lipgloss.NewStyle().Foreground(colorRed)
)

// renderer writes plain text, or lipgloss-styled text on a terminal.
type renderer struct {
	styled bool
}

func (r renderer) paint(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

// nodes renders a node listing under title.
func (r renderer) nodes(title string, nodes []kube.NodeInfo) string {
	var b strings.Builder

	b.WriteString(r.paint(sectionStyle, title))
	b.WriteString("\n")

	if len(nodes) == 0 {
		b.WriteString(r.paint(dimStyle, "  no nodes"))
		b.WriteString("\n")
		return b.String()
	}

	var table strings.Builder
	w := tabwriter.NewWriter(&table, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "  NAME\tSTATUS\tROLES\tVERSION")
	for _, n := range nodes {
		roles := strings.Join(n.Roles, ",")
		if roles == "" {
			roles = "<none>"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", n.Name, nodeStatus(n), roles, n.KubeletVersion)
	}
	_ = w.Flush()

	// Color is applied after alignment so escape codes do not skew the columns.
	lines := strings.Split(strings.TrimSuffix(table.String(), "\n"), "\n")
	for i, line := range lines {
		switch {
		case i == 0:
			line = r.paint(dimStyle, line)
		case !nodes[i-1].Ready:
			line = r.paint(redStyle, line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func nodeStatus(n kube.NodeInfo) string {
	status := "NotReady"
	if n.Ready {
		status = "Ready"
	}
	if !n.Schedulable {
		status += ",SchedulingDisabled"
	}
	return status
}

// plan renders a resolved plan and the steps of every node.
func (r renderer) plan(rep *planReport) string {
	var b strings.Builder

	b.WriteString(r.paint(titleStyle, fmt.Sprintf("kuberoll plan: %s -> %s", rep.Plan.From, rep.Plan.TargetShortVersion)))
	b.WriteString("\n")
	b.WriteString(r.paint(dimStyle, strings.Repeat("=", 40)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  server version:  %s\n", rep.Plan.ServerVersion)
	fmt.Fprintf(&b, "  channel:         %s\n", rep.Plan.Channel())
	fmt.Fprintf(&b, "  package version: %s\n", rep.Plan.TargetFullVersion)

	for i, n := range rep.Nodes {
		b.WriteString("\n")
		b.WriteString(r.paint(sectionStyle, fmt.Sprintf("%d. %s (%s, %s)", i+1, n.Name, n.Role, n.Host)))
		b.WriteString("\n")
		for _, s := range n.Steps {
			b.WriteString("  - ")
			b.WriteString(string(s))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// result renders the closing line of an upgrade.
func (r renderer) result(err error, state upgrade.RunState) string {
	if err == nil {
		return r.paint(greenStyle, "upgrade completed") + "\n"
	}
	msg := "upgrade aborted"
	if state.Node != "" {
		msg += fmt.Sprintf(" on node %s in state %s", state.Node, state.NodeState)
	}
	return r.paint(redStyle, msg) + "\n"
}
