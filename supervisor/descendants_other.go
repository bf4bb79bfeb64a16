//go:build !linux

package supervisor

import (
	ps "github.com/mitchellh/go-ps"
	"github.com/sirupsen/logrus"
)

func descendants(pid int) []int {
	procs, err := ps.Processes()
	if err != nil {
		logrus.Errorf("supervisor: list processes: %s", err)
		return nil
	}
	children := make(map[int][]int)
	for _, p := range procs {
		children[p.PPid()] = append(children[p.PPid()], p.Pid())
	}
	var out []int
	queue := []int{pid}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, c := range children[p] {
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}
