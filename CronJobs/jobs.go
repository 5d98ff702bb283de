package CronJobs

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"Aegis/Models"
	"Aegis/Scheduler"
)

// WeeklyMaterializer re-runs the idempotent materializer for active
// this_week assignments so a new week's executions exist before anyone
// opens their dashboard. The engine stays request-driven, this cron only
// triggers the same operation a request would.
type WeeklyMaterializer struct {
	db             *gorm.DB
	cronScheduler  *cron.Cron
	runImmediately bool
	jobID          cron.EntryID
}

func NewWeeklyMaterializer(db *gorm.DB, runImmediately bool) *WeeklyMaterializer {
	return &WeeklyMaterializer{
		db:             db,
		cronScheduler:  cron.New(cron.WithSeconds()),
		runImmediately: runImmediately,
	}
}

// Start schedules the rollover run every Monday at 00:10.
func (w *WeeklyMaterializer) Start() error {
	var err error
	w.jobID, err = w.cronScheduler.AddFunc("0 10 0 * * 1", func() {
		log.Println("Running weekly materialization rollover")
		w.run()
	})
	if err != nil {
		return fmt.Errorf("error scheduling cron job: %w", err)
	}

	w.cronScheduler.Start()
	fmt.Println("Weekly materializer started - will run Mondays at 00:10")

	if w.runImmediately {
		w.run()
	}
	return nil
}

func (w *WeeklyMaterializer) Stop() {
	if w.cronScheduler != nil {
		w.cronScheduler.Stop()
		log.Println("Weekly materializer stopped")
	}
}

func (w *WeeklyMaterializer) run() {
	var assignments []Models.Assignment
	if err := w.db.Where("schedule_policy = ? AND active = ?", Models.ScheduleThisWeek, true).
		Find(&assignments).Error; err != nil {
		log.Printf("Error fetching this_week assignments: %v", err)
		return
	}

	materializer := Scheduler.NewMaterializer(w.db)
	now := time.Now()
	materialized := 0
	for i := range assignments {
		if _, err := materializer.Materialize(&assignments[i], now); err != nil {
			log.Printf("Error materializing assignment %d: %v", assignments[i].ID, err)
			continue
		}
		materialized++
	}
	log.Printf("Weekly rollover completed: %d/%d assignments materialized", materialized, len(assignments))
}
