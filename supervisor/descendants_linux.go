package supervisor

import (
	"github.com/sbinet/pstree"
	"github.com/sirupsen/logrus"
)

func descendants(pid int) []int {
	tree, err := pstree.New()
	if err != nil {
		logrus.Errorf("supervisor: read process tree: %s", err)
		return nil
	}
	var out []int
	var walk func(int)
	walk = func(p int) {
		for _, c := range tree.Procs[p].Children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(pid)
	return out
}
