package ps

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const cpuSampleWindow = 50 * time.Millisecond

func CPUStatus() (CPU, error) {
	list, err := cpu.Percent(cpuSampleWindow, false)
	if err != nil {
		return CPU{}, err
	}
	if len(list) == 0 {
		return CPU{}, nil
	}

	return CPU{
		Percent: list[0],
	}, nil
}

func MemoryStatus() (Memory, error) {
	memory, err := mem.VirtualMemory()
	if err != nil {
		return Memory{}, err
	}
	swapMemory, err := mem.SwapMemory()
	if err != nil {
		return Memory{}, err
	}

	return Memory{
		Total:       memory.Total,
		Used:        memory.Used,
		UsedPercent: memory.UsedPercent,
		Human:       humanize.Bytes(memory.Used) + " / " + humanize.Bytes(memory.Total),

		SwapTotal:       swapMemory.Total,
		SwapUsed:        swapMemory.Used,
		SwapUsedPercent: swapMemory.UsedPercent,
	}, nil
}

// Host is the snapshot rendered next to the capture status, so operators can
// tell a starved host from a flaky camera.
type Host struct {
	CPU    CPU    `json:"cpu"`
	Memory Memory `json:"memory"`
}

func HostStatus() (Host, error) {
	c, err := CPUStatus()
	if err != nil {
		return Host{}, err
	}
	m, err := MemoryStatus()
	if err != nil {
		return Host{}, err
	}

	return Host{CPU: c, Memory: m}, nil
}

type CPU struct {
	Percent float64 `json:"percent"`
}

type Memory struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"usedPercent"`
	Human       string  `json:"human"`

	SwapTotal       uint64  `json:"swapTotal"`
	SwapUsed        uint64  `json:"swapUsed"`
	SwapUsedPercent float64 `json:"swapUsedPercent"`
}
