// Package hcloud wraps the Hetzner Cloud API for node discovery.
//
// Servers are listed by label selector and reduced to the fields an
// upgrade needs: name, labels and the address used for SSH.
package hcloud
