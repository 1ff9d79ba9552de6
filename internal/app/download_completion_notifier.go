package app

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
)

// DownloadCompletionNotifier transforme download.completed en notification personnelle.
type DownloadCompletionNotifier struct {
	logger   zerolog.Logger
	bus      ports.EventBus
	notifier *NotificationService
}

func NewDownloadCompletionNotifier(logger zerolog.Logger, bus ports.EventBus, notifier *NotificationService) *DownloadCompletionNotifier {
	return &DownloadCompletionNotifier{logger: logger, bus: bus, notifier: notifier}
}

func (u *DownloadCompletionNotifier) Run(ctx context.Context) {
	if u == nil || u.bus == nil || u.notifier == nil {
		return
	}
	ch, cancel := u.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			u.logger.Info().Msg("download completion notifier stopped")
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			u.handleEvent(ctx, evt)
		}
	}
}

func (u *DownloadCompletionNotifier) handleEvent(ctx context.Context, evt ports.Event) {
	if evt.Topic != TopicDownloadCompleted {
		return
	}

	var d domain.DownloadItem
	if err := json.Unmarshal(evt.Payload, &d); err != nil {
		u.logger.Debug().Err(err).Msg("ignore malformed download event")
		return
	}
	if d.UserID == "" || d.State != domain.DownloadCompleted {
		return
	}

	_, err := u.notifier.Notify(ctx, d.UserID, domain.NotificationDownload,
		"Download complete: "+d.Title,
		string(d.Quality)+" copy is ready to watch offline.",
		"/downloads")
	if err != nil {
		u.logger.Warn().Err(err).Str("download_id", d.ID).Msg("failed to notify download completion")
	}
}
