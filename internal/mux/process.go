package mux

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
)

const (
	maxProcessTreeDepth   = 5
	maxProcessTreeEntries = 15
)

// ProcessTree returns the command lines of the descendants of pid, indented
// by depth. It snapshots all processes with a single ps call and walks the
// tree breadth-first. Best effort: any failure returns nil.
func ProcessTree(ctx context.Context, pid int) []string {
	if pid <= 0 {
		return nil
	}
	out, err := exec.CommandContext(ctx, "ps", "-eo", "pid=,ppid=,args=").Output()
	if err != nil {
		return nil
	}
	return buildProcessTree(string(out), pid)
}

type proc struct {
	pid  int
	args string
}

// buildProcessTree walks ps output ("PID PPID ARGS..." per line) from root.
func buildProcessTree(psOutput string, root int) []string {
	children := map[int][]proc{}
	for _, line := range strings.Split(psOutput, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		pid, err1 := strconv.Atoi(fields[0])
		ppid, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		// Keep the original spacing of the args column.
		rest := strings.TrimSpace(line)
		for i := 0; i < 2; i++ {
			rest = strings.TrimSpace(rest[strings.IndexAny(rest, " \t"):])
		}
		children[ppid] = append(children[ppid], proc{pid: pid, args: rest})
	}

	type entry struct {
		pid   int
		depth int
	}
	var tree []string
	queue := []entry{{pid: root}}
	for len(queue) > 0 && len(tree) < maxProcessTreeEntries {
		e := queue[0]
		queue = queue[1:]
		if e.depth >= maxProcessTreeDepth {
			continue
		}
		indent := strings.Repeat("  ", e.depth)
		for _, child := range children[e.pid] {
			if len(tree) >= maxProcessTreeEntries {
				break
			}
			tree = append(tree, indent+child.args)
			queue = append(queue, entry{pid: child.pid, depth: e.depth + 1})
		}
	}
	return tree
}
