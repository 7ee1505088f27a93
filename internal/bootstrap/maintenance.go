package bootstrap

import (
	"context"
	"time"

	"fixmate_backend/internal/scheduler"
)

const outboxRetention = 7 * 24 * time.Hour

// Maintenance registers the housekeeping sweeps for these services.
func (s *Services) Maintenance() *scheduler.Maintenance {
	m := scheduler.NewMaintenance(s.Log)
	if s.Config.GetConversationStaleAfter() > 0 {
		m.Add("conversation.stale_sweep", s.Config.GetStaleSweepInterval(), s.Conversation.SweepStale)
	}
	if s.LinkStore != nil {
		m.Add("auth.used_link_purge", time.Hour, func(ctx context.Context) (int64, error) {
			return s.LinkStore.PurgeExpired(ctx, time.Now())
		})
	}
	m.Add("outbox.cleanup", time.Hour, scheduler.RetentionSweep(outboxRetention, s.Outbox.DeleteSucceededBefore))
	return m
}
