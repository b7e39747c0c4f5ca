package flow

import (
	"context"

	"github.com/moyoez/filetool-go/types"
)

// Event is one progress or outcome report of a flow run. Exactly one of Result and
// Err is set on the final event of a run.
type Event struct {
	RunID     string          `json:"runId,omitempty"`
	FileID    string          `json:"fileId"`
	Operation types.Operation `json:"operation"`
	State     State           `json:"state"`
	Progress  int             `json:"progress"`
	Result    *Result         `json:"result,omitempty"`
	Err       error           `json:"-"`
	Message   string          `json:"message,omitempty"`
}

// Final reports whether ev ends its run.
func (ev Event) Final() bool {
	return ev.Result != nil || ev.Err != nil
}

// Reporter receives flow events. Implementations must not block for long.
type Reporter interface {
	Report(ev Event)
}

type ReporterFunc func(ev Event)

func (f ReporterFunc) Report(ev Event) { f(ev) }

type nopReporter struct{}

func (nopReporter) Report(Event) {}

// MultiReporter fans events out to every non-nil reporter.
func MultiReporter(reporters ...Reporter) Reporter {
	return ReporterFunc(func(ev Event) {
		for _, r := range reporters {
			if r != nil {
				r.Report(ev)
			}
		}
	})
}

type runIDKey struct{}

// WithRunID tags every event of flows started with ctx with id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
