package loadgen

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
)

// Report is the outcome of one run
type Report struct {
	Success    int
	Failed     int
	Elapsed    time.Duration
	RSSMB      float64 // resident memory of this process at the end
	CPUPercent float64 // system-wide, sampled over CPUSample at the end
	started    time.Time
}

func newReport() *Report {
	return &Report{started: time.Now()}
}

func (r *Report) finish(cpuSample time.Duration) {
	r.Elapsed = time.Since(r.started)
	if cpuSample <= 0 {
		cpuSample = time.Second
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err != nil {
		log.Printf("[WARN] process stats: %v", err)
	} else if mem, err := p.MemoryInfo(); err != nil {
		log.Printf("[WARN] memory info: %v", err)
	} else {
		r.RSSMB = float64(mem.RSS) / (1024 * 1024)
	}
	if pct, err := cpu.Percent(cpuSample, false); err != nil || len(pct) == 0 {
		log.Printf("[WARN] cpu percent: %v", err)
	} else {
		r.CPUPercent = pct[0]
	}
}

func (r *Report) Total() int {
	return r.Success + r.Failed
}

func (r *Report) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "FINAL REPORT\n"+
		"  success:    %d\n"+
		"  failed:     %d\n"+
		"  requests:   %d\n"+
		"  total time: %.2f seconds\n"+
		"  memory:     %.2f MB\n"+
		"  cpu:        %.1f%%\n",
		r.Success, r.Failed, r.Total(), r.Elapsed.Seconds(), r.RSSMB, r.CPUPercent)
}
