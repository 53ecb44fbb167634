package worker

import (
	"context"
	"sync"

	"github.com/spec-kit/ticket-intake/internal/service"
)

// StartNotificationWorker registers notification handlers and starts relaying
// in the background. The returned func blocks until the worker has flushed
// after ctx is cancelled.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService) (wait func()) {
	if notificationService == nil {
		return func() {}
	}
	notificationService.RegisterHandlers()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		notificationService.Run(ctx)
	}()
	return wg.Wait
}
