// Package authz maps session roles to the console capabilities they may use.
package authz

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cjl-github/chiwen/internal/errors"
)

// Role is the authorization role attached to a session.
type Role string

const (
	// RoleNone is the role of an anonymous session.
	RoleNone Role = ""
	// RoleAdmin grants every console area.
	RoleAdmin Role = "admin"
	// RoleUser grants the read-mostly areas.
	RoleUser Role = "user"
)

// IsValid reports whether r is a role the gate knows about.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// ParseRole converts a role claim to a Role. Unknown names return false.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return RoleNone, false
	}
	return r, true
}

// Capability names a console feature area.
type Capability string

// Console capabilities.
const (
	CapDashboard  Capability = "dashboard"
	CapAssets     Capability = "assets"
	CapPipeline   Capability = "pipeline"
	CapMonitor    Capability = "monitor"
	CapLogs       Capability = "logs"
	CapAudit      Capability = "audit"
	CapManagement Capability = "management"
)

// AllCapabilities lists every capability in display order.
var AllCapabilities = []Capability{
	CapDashboard, CapAssets, CapPipeline, CapMonitor, CapLogs, CapAudit, CapManagement,
}

// Gate is a static role to capability table. Dashboard is always allowed,
// whatever the role, including none.
type Gate struct {
	grants map[Role]map[Capability]bool
}

// NewGate builds a gate from a role to capability listing.
func NewGate(table map[Role][]Capability) *Gate {
	g := &Gate{grants: make(map[Role]map[Capability]bool, len(table))}
	for role, caps := range table {
		set := make(map[Capability]bool, len(caps))
		for _, c := range caps {
			set[c] = true
		}
		g.grants[role] = set
	}
	return g
}

// DefaultGate returns the console's built-in permission table.
func DefaultGate() *Gate {
	return NewGate(map[Role][]Capability{
		RoleAdmin: {CapDashboard, CapAssets, CapPipeline, CapMonitor, CapLogs, CapAudit, CapManagement},
		RoleUser:  {CapDashboard, CapAssets, CapAudit},
	})
}

// Allows reports whether role may use capability.
func (g *Gate) Allows(role Role, capability Capability) bool {
	if capability == CapDashboard {
		return true
	}
	if g == nil {
		return false
	}
	return g.grants[role][capability]
}

// Capabilities returns what role may use, in display order.
func (g *Gate) Capabilities(role Role) []Capability {
	var out []Capability
	for _, c := range AllCapabilities {
		if g.Allows(role, c) {
			out = append(out, c)
		}
	}
	// Custom capabilities from an override file go last, sorted.
	var extra []string
	if g != nil {
		for c := range g.grants[role] {
			if !isBuiltin(c) {
				extra = append(extra, string(c))
			}
		}
	}
	sort.Strings(extra)
	for _, c := range extra {
		out = append(out, Capability(c))
	}
	return out
}

func isBuiltin(c Capability) bool {
	for _, b := range AllCapabilities {
		if b == c {
			return true
		}
	}
	return false
}

// gateFile is the YAML layout of a permission override:
//
//	roles:
//	  admin: [dashboard, assets, ...]
//	  user: [dashboard, assets]
type gateFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadGate reads a permission table from a YAML file. Only known roles may
// be listed.
func LoadGate(path string) (*Gate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigUnreadableError(path, err)
	}

	var f gateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.NewConfigUnreadableError(path, err)
	}
	if len(f.Roles) == 0 {
		return nil, errors.NewConfigInvalidError("authz.file", fmt.Sprintf("%s defines no roles", path))
	}

	table := make(map[Role][]Capability, len(f.Roles))
	for name, caps := range f.Roles {
		role, ok := ParseRole(name)
		if !ok {
			return nil, errors.NewConfigInvalidError("authz.file", fmt.Sprintf("unknown role %q", name))
		}
		for _, c := range caps {
			table[role] = append(table[role], Capability(strings.TrimSpace(c)))
		}
	}
	return NewGate(table), nil
}
