package notify

import (
	"fmt"
	"sync"

	"github.com/moyoez/filetool-go/flow"
	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

// DefaultFlowQueueSize bounds the events waiting for a slow notifier.
const DefaultFlowQueueSize = 256

// FlowReporter turns flow events into notifications. Events are queued and sent
// by one goroutine in order, so a slow host never stalls a flow. When the queue
// is full, progress events are dropped; final events always wait for a slot.
type FlowReporter struct {
	notifier Notifier
	queue    chan flow.Event
	done     chan struct{}

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewFlowReporter(notifier Notifier, queueSize int) *FlowReporter {
	if queueSize <= 0 {
		queueSize = DefaultFlowQueueSize
	}
	r := &FlowReporter{
		notifier: notifier,
		queue:    make(chan flow.Event, queueSize),
		done:     make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *FlowReporter) loop() {
	defer close(r.done)
	for ev := range r.queue {
		if r.notifier == nil {
			continue
		}
		if err := r.notifier.Send(FlowNotification(ev)); err != nil {
			tool.DefaultLogger.Debugf("[Notify] failed to deliver %s event: %v", ev.Operation, err)
		}
	}
}

func (r *FlowReporter) Report(ev flow.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	if ev.Final() {
		r.queue <- ev
		return
	}
	select {
	case r.queue <- ev:
	default:
		tool.DefaultLogger.Debugf("[Notify] queue full, dropping %s progress event", ev.Operation)
	}
}

// Close stops accepting events and waits until the queued ones are sent.
func (r *FlowReporter) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
	})
	<-r.done
}

// FlowNotification builds the notification for ev.
func FlowNotification(ev flow.Event) *types.Notification {
	data := map[string]any{
		"fileId":    ev.FileID,
		"operation": ev.Operation,
		"state":     ev.State,
		"progress":  ev.Progress,
	}
	if ev.RunID != "" {
		data["jobId"] = ev.RunID
	}

	switch {
	case ev.Err != nil:
		data["error"] = ev.Err.Error()
		return &types.Notification{
			Type:    types.NotifyTypeFlowFailed,
			Title:   "Processing Failed",
			Message: ev.Message,
			Data:    data,
		}
	case ev.Result != nil:
		data["files"] = ev.Result.Files
		data["total"] = ev.Result.Total
		return &types.Notification{
			Type:    types.NotifyTypeFlowDone,
			Title:   "Processing Completed",
			Message: fmt.Sprintf("%s finished: %d of %d file(s)", ev.Operation, len(ev.Result.Files), ev.Result.Total),
			Data:    data,
		}
	default:
		return &types.Notification{
			Type: types.NotifyTypeFlowProgress,
			Data: data,
		}
	}
}
