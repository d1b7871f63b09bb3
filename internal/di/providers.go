package di

import (
	"context"
	"rad/internal/milestone"
	"rad/internal/models"
	"rad/internal/providers"
	"rad/internal/services"
	"rad/internal/storage"
	"rad/internal/writequeue"
	"time"
)

// ProvideSink exposes the raw mongo store as the write-behind flush target.
// Flushes bypass the cache layer on purpose: bulk $inc never touches keys
// the cache holds in a form worth patching.
func ProvideSink(store *storage.Mongo) writequeue.Sink { return store }

// ProvideTracker builds the milestone tracker with a save callback that
// folds the milestone section back into the settings document. Thresholds
// are rehydrated from the store by Scheduler.Restore.
func ProvideTracker(gateway storage.Gateway, logger providers.Logger) *milestone.Tracker {
	save := func(conf models.MilestoneConfig) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		doc, err := gateway.LoadConfig(ctx)
		if err != nil {
			return err
		}
		if doc == nil {
			doc = &models.BotConfig{}
		}
		doc.Milestones = conf
		doc.UpdatedAt = time.Now().Unix()
		return gateway.SaveBotConfig(ctx, doc)
	}
	return milestone.NewTracker(models.MilestoneConfig{}, save, logger)
}

// ProvideNotifier is the default chat-side effect handler: none. The chat
// client replaces this when it embeds the pipeline.
func ProvideNotifier() services.Notifier { return services.NoopNotifier{} }
