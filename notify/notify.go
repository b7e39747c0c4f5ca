// Package notify delivers notifications to the host UI: over a Unix domain socket,
// to WebSocket clients, or just to the log.
package notify

import (
	"errors"

	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

// Notifier delivers one notification.
type Notifier interface {
	Send(notification *types.Notification) error
}

type NotifierFunc func(notification *types.Notification) error

func (f NotifierFunc) Send(notification *types.Notification) error { return f(notification) }

// Multi sends to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(notification *types.Notification) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(notification); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes notifications to tool.DefaultLogger. Progress goes to debug.
type LogNotifier struct{}

func (LogNotifier) Send(notification *types.Notification) error {
	if notification == nil {
		return nil
	}
	if notification.Type == types.NotifyTypeFlowProgress {
		tool.DefaultLogger.Debugf("[Notify] %s: %v", notification.Type, notification.Data)
		return nil
	}
	tool.DefaultLogger.Infof("[Notify] %s - %s: %s", notification.Type, notification.Title, notification.Message)
	return nil
}
