package auth

import (
	"fmt"
	"strings"
)

// A Capability is a single privilege bit.
type Capability uint8

const (
	None      Capability = 0
	Approved  Capability = 1 << 0
	Approver  Capability = 1 << 1
	Superuser Capability = 1 << 2

	// CanApprove is not a stored bit. It is satisfied by Approver or Superuser.
	CanApprove Capability = 1 << 7
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{Approved, "approved"},
	{Approver, "approver"},
	{Superuser, "superuser"},
}

func (c Capability) String() string {
	switch c {
	case None:
		return "none"
	case CanApprove:
		return "can_approve"
	}
	for _, cn := range capabilityNames {
		if cn.c == c {
			return cn.name
		}
	}
	return fmt.Sprintf("capability(%d)", uint8(c))
}

// Capabilities is the set of capabilities an account holds. The zero value is the empty set.
type Capabilities uint8

// ParseCapabilities parses the stored integer representation. Unknown bits are an error.
func ParseCapabilities(v int64) (Capabilities, error) {
	var all = Approved | Approver | Superuser
	if v < 0 || v&^int64(all) != 0 {
		return 0, fmt.Errorf("invalid capabilities %d", v)
	}
	return Capabilities(v).normalize(), nil
}

// normalize adds Approved if Approver or Superuser is present.
func (cs Capabilities) normalize() Capabilities {
	if cs&Capabilities(Approver|Superuser) != 0 {
		cs |= Capabilities(Approved)
	}
	return cs
}

// Grant returns the set with c (and everything c implies) added.
func (cs Capabilities) Grant(c Capability) Capabilities {
	if c == None || c == CanApprove {
		return cs
	}
	return (cs | Capabilities(c)).normalize()
}

// Has reports whether the set satisfies c. None is always satisfied.
func (cs Capabilities) Has(c Capability) bool {
	switch c {
	case None:
		return true
	case CanApprove:
		return cs.CanApprove()
	default:
		return cs&Capabilities(c) == Capabilities(c)
	}
}

// CanApprove reports whether the holder may approve or reject content.
func (cs Capabilities) CanApprove() bool {
	return cs&Capabilities(Approver|Superuser) != 0
}

// Int64 returns the stored representation.
func (cs Capabilities) Int64() int64 {
	return int64(cs)
}

// Names returns the names of all capabilities in the set, in a stable order.
func (cs Capabilities) Names() []string {
	var names = []string{}
	for _, cn := range capabilityNames {
		if cs.Has(cn.c) {
			names = append(names, cn.name)
		}
	}
	return names
}

func (cs Capabilities) String() string {
	if cs == 0 {
		return "none"
	}
	return strings.Join(cs.Names(), ",")
}
