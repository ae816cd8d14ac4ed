package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/him9495-payu/kaira/internal/database"
	"github.com/him9495-payu/kaira/internal/flow"
)

// nudgeBatchLimit caps how many abandoned sessions one run touches.
const nudgeBatchLimit = 100

func nudgeText(lang flow.Language) string {
	if lang == flow.LangHindi {
		return "आपका लोन आवेदन अधूरा है। जहाँ छोड़ा था वहीं से जारी रखने के लिए यहाँ reply करें।"
	}
	return "Your loan application is incomplete. Reply here to continue where you left off."
}

// newInactivityNudgeTask creates the task that reminds users who went quiet
// in the middle of a conversation step. One nudge per abandonment: a profile
// is skipped until it shows activity newer than its last nudge.
func newInactivityNudgeTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "inactivity_nudge")
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled inactivity nudge task...")
		startTime := now()

		cutoff := startTime.Add(-deps.Flow.InactivityThreshold)
		profiles, err := deps.Profiles.ListInactiveProfiles(ctx, cutoff, nudgeBatchLimit)
		if err != nil {
			log.ErrorContext(ctx, "Failed to list inactive profiles", "error", err)
			return fmt.Errorf("failed to list inactive profiles: %w", err)
		}

		var nudged, skipped int
		for _, profile := range profiles {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			meta := flow.ParseMeta(profile.Metadata)
			if meta.Session.Step == flow.StepNone || profile.Stage == flow.StageCompleted {
				skipped++
				continue
			}
			if meta.LastNudgedAt != nil && meta.LastNudgedAt.After(profile.LastActivity) {
				skipped++
				continue
			}

			lang := meta.Session.Language
			if lang == "" {
				lang = flow.Language(profile.Language)
			}
			if err := deps.Messenger.SendText(ctx, profile.Phone, nudgeText(lang)); err != nil {
				log.WarnContext(ctx, "Failed to send nudge", "error", err, "phone", profile.Phone)
				continue
			}

			audit := &database.InteractionEvent{
				Phone:     profile.Phone,
				Direction: flow.DirectionOutbound,
				Category:  "inactivity_nudge",
				Payload:   fmt.Sprintf(`{"step":%q}`, string(meta.Session.Step)),
			}
			if err := deps.Store.AppendInteraction(ctx, audit); err != nil {
				log.WarnContext(ctx, "Failed to record nudge interaction", "error", err, "phone", profile.Phone)
			}

			at := now().UTC()
			meta.LastNudgedAt = &at
			raw, err := meta.Marshal()
			if err != nil {
				log.WarnContext(ctx, "Failed to serialize nudged session", "error", err, "phone", profile.Phone)
				continue
			}
			profile.Metadata = raw
			if err := deps.Profiles.SaveUserProfile(ctx, profile); err != nil {
				// A stale save means the user just came back; nothing to record.
				if errors.Is(err, database.ErrStaleProfile) {
					skipped++
					continue
				}
				log.WarnContext(ctx, "Failed to record nudge", "error", err, "phone", profile.Phone)
				continue
			}
			nudged++
		}

		log.InfoContext(ctx, "Inactivity nudge task completed",
			"nudged", nudged, "skipped", skipped, "duration", time.Since(startTime))
		return nil
	}
}
