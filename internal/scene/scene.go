// Package scene models the render-graph handles that projectiles attach to
// while they are in flight. Actual rendering happens elsewhere; this package
// only tracks what is attached and where it is.
package scene

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Template describes how a kind of object looks. Every instance gets its own
// Node built from the template, nodes are never shared.
type Template struct {
	Geometry      string `yaml:"geometry"`
	Material      string `yaml:"material"`
	CastShadow    bool   `yaml:"cast_shadow"`
	ReceiveShadow bool   `yaml:"receive_shadow"`
}

// Instantiate builds a fresh, hidden node from the template.
func (t Template) Instantiate(name string) *Node {
	return &Node{
		Name:          name,
		Geometry:      t.Geometry,
		Material:      t.Material,
		CastShadow:    t.CastShadow,
		ReceiveShadow: t.ReceiveShadow,
		Rotation:      mgl64.QuatIdent(),
	}
}

// Node is a render handle for one object.
type Node struct {
	Name          string
	Geometry      string
	Material      string
	CastShadow    bool
	ReceiveShadow bool
	Visible       bool
	Position      mgl64.Vec3
	Rotation      mgl64.Quat
}

// Graph is the attachment point nodes are added to and removed from.
type Graph interface {
	Add(n *Node)
	Remove(n *Node)
}

// Discard is a Graph that ignores everything.
var Discard Graph = discard{}

type discard struct{}

func (discard) Add(*Node)    {}
func (discard) Remove(*Node) {}
