package extensions

import (
	"fmt"

	"github.com/m1gwings/treedrawer/tree"

	atomirx "github.com/linq2js/atomirx-sub001"
)

// DependencyTree renders a node's current read-set as a drawn tree, for
// devtools-style inspection of what a derived computation actually touched on
// its last run.
//
//	fmt.Println(extensions.DependencyTree(total.DebugKey(), total.Dependencies()))
func DependencyTree(label string, deps []atomirx.Dependency) string {
	if label == "" {
		label = "(unnamed)"
	}
	t := tree.NewTree(tree.NodeString(label))
	for i, dep := range deps {
		key := dep.DebugKey()
		if key == "" {
			key = fmt.Sprintf("dep#%d", i)
		}
		t.AddChild(tree.NodeString(key))
	}
	return t.String()
}
