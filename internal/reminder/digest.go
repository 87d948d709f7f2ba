package reminder

import (
	"context"
	"encoding/json"
	"hash/fnv"

	"tickler/internal/i18n"
	"tickler/internal/notify"
	"tickler/internal/task"
	logx "tickler/pkg/logx"
)

// reconcileDigests keeps the morning/evening daily registrations in line with
// the settings. The normalized settings are fingerprinted so unrelated store
// churn never tears down and re-creates the cron entries.
func (s *Service) reconcileDigests(ctx context.Context, settings task.NotifySettings) {
	fp := digestFingerprint(settings)

	s.mu.Lock()
	if s.haveDigestFP && s.digestFP == fp {
		s.mu.Unlock()
		return
	}
	old := s.digestHandles
	s.digestHandles = nil
	s.digestFP = fp
	s.haveDigestFP = true
	s.mu.Unlock()

	for _, h := range old {
		_ = s.port.Cancel(ctx, h)
	}

	lang := i18n.Normalize(settings.Language)
	var handles []notify.Handle
	if settings.MorningEnabled {
		if h, ok := s.registerDigest(ctx, lang, "digest.morningTitle", "digest.morningBody",
			settings.MorningTime, task.DefaultMorningTime); ok {
			handles = append(handles, h)
		}
	}
	if settings.EveningEnabled {
		if h, ok := s.registerDigest(ctx, lang, "digest.eveningTitle", "digest.eveningBody",
			settings.EveningTime, task.DefaultEveningTime); ok {
			handles = append(handles, h)
		}
	}

	s.mu.Lock()
	s.digestHandles = handles
	s.mu.Unlock()
}

func (s *Service) registerDigest(ctx context.Context, lang i18n.Language, titleKey, bodyKey, at, fallback string) (notify.Handle, bool) {
	fbHour, fbMinute := task.ParseTimeOfDay(fallback, 0, 0)
	hour, minute := task.ParseTimeOfDay(at, fbHour, fbMinute)

	h, err := s.port.RegisterDaily(ctx, notify.Content{
		Title: i18n.T(lang, titleKey),
		Body:  i18n.T(lang, bodyKey),
		Kind:  KindDailyDigest,
	}, hour, minute)
	if err != nil {
		s.log.Warn("digest registration failed", logx.String("at", at), logx.Err(err))
		return "", false
	}
	s.log.Debug("digest registered", logx.Int("hour", hour), logx.Int("minute", minute))
	return h, true
}

// digestFingerprint hashes the digest-relevant settings. JSON of the
// normalized struct is stable field order, so equal settings hash equal.
func digestFingerprint(settings task.NotifySettings) uint64 {
	raw, err := json.Marshal(settings)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(raw)
	return h.Sum64()
}
