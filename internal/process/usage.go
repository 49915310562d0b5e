package process

import (
	"fmt"

	"github.com/dustin/go-humanize"
	gops "github.com/shirou/gopsutil/v3/process"
)

// Usage is a resource snapshot of the running simulation.
type Usage struct {
	CPUPercent float64
	RSS        uint64
}

func (u Usage) String() string {
	return fmt.Sprintf("cpu %.1f%%  rss %s", u.CPUPercent, humanize.IBytes(u.RSS))
}

// Usage samples CPU and memory of the owned process. It reports false when
// nothing runs or the process cannot be inspected.
func (c *Controller) Usage() (Usage, bool) {
	pid := c.Pid()
	if pid <= 0 {
		return Usage{}, false
	}
	p, err := gops.NewProcess(int32(pid))
	if err != nil {
		return Usage{}, false
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return Usage{}, false
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return Usage{}, false
	}
	return Usage{CPUPercent: cpu, RSS: mem.RSS}, true
}
