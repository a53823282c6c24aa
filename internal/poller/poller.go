// Package poller drives remote jobs forward in the
// background: running processes are re-polled and finished
// ones have their results fetched, so progress does not
// depend on a user keeping a page open.
package poller

import (
	"context"
	"fmt"
	"time"

	psvc "github.com/equestria-cloud/equestria/api/rest/service/process"
	"github.com/equestria-cloud/equestria/internal/models"
	"github.com/equestria-cloud/equestria/pkg/log"
	"github.com/robfig/cron"
)

type Poller struct {
	schedule  cron.Schedule
	processes psvc.Process
}

// New builds a poller ticking every interval.
func New(processes psvc.Process, interval time.Duration) (*Poller, error) {
	sched, err := cron.Parse(fmt.Sprintf("@every %s", interval))
	if err != nil {
		return nil, err
	}

	return &Poller{schedule: sched, processes: processes}, nil
}

// Run ticks on the schedule until the context is
// cancelled.
func (p *Poller) Run(ctx context.Context) {
	log.Info("poller listening")

	for {
		select {
		case <-time.After(time.Until(p.schedule.Next(time.Now()))):
			p.Tick()
		case <-ctx.Done():
			log.Info("poller stopped")
			return
		}
	}
}

// Tick advances every process with remote work pending.
// Individual failures are already absorbed and logged by
// the process service; a tick never fails as a whole.
func (p *Poller) Tick() {
	running, err := p.processes.ListByStatus(models.StatusRunning)
	if err != nil {
		log.Error("failed to list running processes", "error", err)
		return
	}

	for i := range running {
		if p.processes.ClamUpdate(running[i].ID) {
			log.Info("process polled", "process_id", running[i].ID)
		}
	}

	waiting, err := p.processes.ListByStatus(
		models.StatusWaiting,
		models.StatusErrorDownload,
	)
	if err != nil {
		log.Error("failed to list waiting processes", "error", err)
		return
	}

	for i := range waiting {
		if p.processes.DownloadAndDelete(waiting[i].ID) {
			log.Info("process results downloaded", "process_id", waiting[i].ID)
		}
	}
}
