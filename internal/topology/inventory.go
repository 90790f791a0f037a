package topology

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseInventory reads a text inventory. Blank lines and lines starting with
// '#' are ignored. Two line forms are accepted:
//
//	<role> <host> [name]     role is leader, follower, control-plane or worker
//	<host> control|worker    the first control node becomes the leader
//
// The forms cannot be mixed in one file.
func ParseInventory(r io.Reader) (*Topology, error) {
	var nodes []Node
	var legacy *bool
	sawControl := false
	lineNo := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		isLegacy := len(fields) == 2 && isLegacyRole(fields[1]) && parseRole(fields[0]) == ""
		if legacy == nil {
			legacy = &isLegacy
		} else if *legacy != isLegacy {
			return nil, fmt.Errorf("inventory line %d: mixed inventory formats", lineNo)
		}

		var n Node
		if isLegacy {
			n = Node{Host: fields[0], Role: RoleWorker}
			if strings.EqualFold(fields[1], "control") {
				n.Role = RoleFollower
				if !sawControl {
					n.Role = RoleLeader
					sawControl = true
				}
			}
		} else {
			if len(fields) < 2 || len(fields) > 3 {
				return nil, fmt.Errorf("inventory line %d: expected \"<role> <host> [name]\", got %q", lineNo, line)
			}
			role := parseRole(fields[0])
			if role == "" {
				return nil, fmt.Errorf("inventory line %d: unknown role %q", lineNo, fields[0])
			}
			n = Node{Role: role, Host: fields[1]}
			if len(fields) == 3 {
				n.Name = fields[2]
			}
		}
		nodes = append(nodes, n)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("inventory is empty")
	}
	return New(nodes)
}

// LoadInventory reads and parses the inventory file at path.
func LoadInventory(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory: %w", err)
	}
	defer func() { _ = f.Close() }()

	t, err := ParseInventory(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func parseRole(s string) Role {
	switch strings.ToLower(s) {
	case "leader":
		return RoleLeader
	case "follower", "control-plane":
		return RoleFollower
	case "worker":
		return RoleWorker
	}
	return ""
}

func isLegacyRole(s string) bool {
	s = strings.ToLower(s)
	return s == "control" || s == "worker"
}
