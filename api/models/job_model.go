package models

import (
	"errors"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/filetool-go/flow"
	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

// JobTTL is how long a job stays readable after its last update.
const JobTTL = 30 * time.Minute

type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is the progress of one flow started through the API.
type Job struct {
	ID        string             `json:"id"`
	FileID    string             `json:"fileId"`
	Operation types.Operation    `json:"operation"`
	Status    JobStatus          `json:"status"`
	State     flow.State         `json:"state"`
	Progress  int                `json:"progress"`
	Files     []types.FileRecord `json:"files,omitempty"`
	Total     int                `json:"total,omitempty"`
	Error     string             `json:"error,omitempty"`
	Message   string             `json:"message,omitempty"`
	CreatedAt int64              `json:"createdAt"`
	UpdatedAt int64              `json:"updatedAt"`
}

var (
	ErrJobNotFound = errors.New("job not found")

	jobsMu sync.Mutex
	jobs   = ttlworker.NewCache[string, *Job](JobTTL)
)

// CreateJob registers a running job for a flow about to start.
func CreateJob(fileID string, op types.Operation) Job {
	now := tool.NowMillis()
	job := &Job{
		ID:        tool.GenerateShortID(),
		FileID:    fileID,
		Operation: op,
		Status:    JobRunning,
		State:     flow.StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	jobsMu.Lock()
	defer jobsMu.Unlock()
	jobs.Set(job.ID, job)
	return *job
}

// GetJob returns a copy of the job.
func GetJob(id string) (Job, error) {
	jobsMu.Lock()
	defer jobsMu.Unlock()
	job := jobs.Get(id)
	if job == nil {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

// ApplyEvent folds a flow event into the job named by its run id.
func ApplyEvent(ev flow.Event) {
	if ev.RunID == "" {
		return
	}
	jobsMu.Lock()
	defer jobsMu.Unlock()
	job := jobs.Get(ev.RunID)
	if job == nil || job.Status != JobRunning {
		return
	}
	job.State = ev.State
	job.Progress = ev.Progress
	job.UpdatedAt = tool.NowMillis()
	switch {
	case ev.Err != nil:
		job.Status = JobFailed
		job.Error = ev.Err.Error()
		job.Message = ev.Message
	case ev.Result != nil:
		job.Status = JobDone
		job.Files = ev.Result.Files
		job.Total = ev.Result.Total
		// a pdf or doc convert reports the operation that actually ran
		job.Operation = ev.Result.Operation
	}
	jobs.Set(job.ID, job)
}

// FailJob marks a job failed when its flow returned without a final event,
// e.g. on validation errors raised before the flow started.
func FailJob(id string, err error) {
	jobsMu.Lock()
	defer jobsMu.Unlock()
	job := jobs.Get(id)
	if job == nil || job.Status != JobRunning {
		return
	}
	job.Status = JobFailed
	job.Error = err.Error()
	job.Message = flow.UserMessage(err)
	job.UpdatedAt = tool.NowMillis()
	jobs.Set(job.ID, job)
}

// JobReporter feeds flow events into the job cache.
var JobReporter flow.Reporter = flow.ReporterFunc(ApplyEvent)
