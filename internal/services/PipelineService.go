package services

import (
	"context"
	"fmt"
	"rad/internal/event"
	"rad/internal/milestone"
	"rad/internal/models"
	"rad/internal/providers"
	"rad/internal/spam"
	"rad/internal/storage"
	"rad/internal/structures"
	"rad/internal/writequeue"
	"sync"
	"time"
)

// Inbound is one chat message after transport decoding. The chat client
// itself is an external collaborator; the pipeline only sees this shape.
type Inbound struct {
	UserID    string    `json:"user_id"`
	GroupID   string    `json:"group_id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	IsMedia   bool      `json:"is_media"`
	IsCommand bool      `json:"is_command"`
	At        time.Time `json:"at"`
}

type OutcomeKind string

const (
	OutcomePaused    OutcomeKind = "paused"
	OutcomeBanned    OutcomeKind = "banned"
	OutcomePenalized OutcomeKind = "penalized"
	OutcomeIgnored   OutcomeKind = "ignored"
	OutcomeSpam      OutcomeKind = "spam"
	OutcomeThrottled OutcomeKind = "throttled"
	OutcomeCounted   OutcomeKind = "counted"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeRewarded  OutcomeKind = "rewarded"
	OutcomeRerolled  OutcomeKind = "rerolled"
)

// Outcome reports what the pipeline did with one message.
type Outcome struct {
	Kind     OutcomeKind     `json:"kind"`
	Decision models.Decision `json:"decision"`
	Penalty  time.Duration   `json:"penalty,omitempty"`
	Reward   int64           `json:"reward,omitempty"`
	Tier     string          `json:"tier,omitempty"`
	Jackpot  bool            `json:"jackpot,omitempty"`
}

// EligibilityChecker decides whether a triggered winner may receive the
// reward. Implementations must be safe to call with a nil user. A returned
// error is treated as ineligible (fail-closed).
type EligibilityChecker interface {
	Eligible(ctx context.Context, user *models.User, msg Inbound) (bool, string, error)
}

// Rewarder turns a win into a payout, grading the winner's daily activity
// and applying any active bonus.
type Rewarder interface {
	Calculate(dailyMsgs int64, bonus models.BonusState) Payout
}

// Notifier receives chat-side effects. The default is a no-op; the chat
// client plugs in here.
type Notifier interface {
	RewardWon(ctx context.Context, msg Inbound, amount int64)
	MilestoneActivated(ctx context.Context, threshold int64, reward models.MilestoneReward)
}

type NoopNotifier struct{}

func (NoopNotifier) RewardWon(context.Context, Inbound, int64)                       {}
func (NoopNotifier) MilestoneActivated(context.Context, int64, models.MilestoneReward) {}

// Penalty escalation steps, indexed by how many times the user has been
// penalized before.
var penaltySteps = []time.Duration{30 * time.Minute, 90 * time.Minute, 180 * time.Minute}

const violationsPerPenalty = 3

// PipelineService composes the classifier, the interval machine and the
// milestone tracker into the per-message decision flow. It owns no chat or
// transport concerns.
type PipelineService struct {
	conf        *structures.Config
	gateway     storage.Gateway
	detector    *spam.Detector
	event       *event.Manager
	tracker     *milestone.Tracker
	queue       *writequeue.Queue
	eligibility EligibilityChecker
	rewarder    Rewarder
	notifier    Notifier
	logger      providers.Logger
	metrics     providers.MetricsProviderInterface

	cooldownMu        sync.Mutex
	lastCommand       map[string]time.Time
	lastCooldownSweep time.Time
}

func NewPipelineService(
	conf *structures.Config,
	gateway storage.Gateway,
	detector *spam.Detector,
	ev *event.Manager,
	tracker *milestone.Tracker,
	queue *writequeue.Queue,
	eligibility EligibilityChecker,
	rewarder Rewarder,
	notifier Notifier,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) *PipelineService {
	return &PipelineService{
		conf:        conf,
		gateway:     gateway,
		detector:    detector,
		event:       ev,
		tracker:     tracker,
		queue:       queue,
		eligibility: eligibility,
		rewarder:    rewarder,
		notifier:    notifier,
		logger:      logger,
		metrics:     metrics,
		lastCommand: make(map[string]time.Time),
	}
}

// HandleMessage runs the full admission flow for one message. Store errors
// on the way never abort the flow: user lookup fails open, eligibility
// fails closed.
func (p *PipelineService) HandleMessage(ctx context.Context, msg Inbound) Outcome {
	now := msg.At
	if now.IsZero() {
		now = time.Now()
	}

	if p.event.IsPaused(now) {
		return Outcome{Kind: OutcomePaused}
	}

	// Fail-open: a store hiccup must never block normal chat, so an
	// unreachable user document is treated as a fresh user.
	user, err := storage.Resolve(ctx, p.conf.Mongo.Timeout, storage.FailOpen, (*models.User)(nil),
		func(ctx context.Context) (*models.User, error) {
			return p.gateway.GetUserCached(ctx, msg.UserID, msg.GroupID)
		})
	if err != nil {
		p.logger.Warnf(providers.TypeStore, "user lookup failed open for %s: %s", msg.UserID, err)
	}

	if user != nil {
		if user.Status.IsBanned {
			return Outcome{Kind: OutcomeBanned}
		}
		if user.Status.IsPenalized {
			if user.Status.PenaltyExpires > 0 && now.Unix() >= user.Status.PenaltyExpires {
				// Lazy expiry: first message after the deadline clears it.
				if err := p.gateway.ClearUserPenalty(ctx, msg.UserID, msg.GroupID); err != nil {
					p.logger.Errorf(providers.TypeStore, "penalty clear failed for %s: %s", msg.UserID, err)
				}
			} else {
				return Outcome{Kind: OutcomePenalized}
			}
		}
	}

	isWhitelisted := user != nil && user.Status.IsWhitelisted
	decision := p.detector.Classify(msg.UserID, msg.Text, msg.IsMedia, isWhitelisted, now)

	switch decision.Verdict {
	case models.VerdictIgnored:
		return Outcome{Kind: OutcomeIgnored, Decision: decision}
	case models.VerdictSpam:
		p.metrics.IncSpamDecision(string(decision.Kind))
		if decision.Kind == models.SpamGlobalFlood {
			p.event.Pause(p.conf.Spam.GlobalFloodPause)
			p.logger.Warnf(providers.TypeSpam, "global flood (%s), paused for %s",
				decision.Detail, p.conf.Spam.GlobalFloodPause)
			return Outcome{Kind: OutcomeSpam, Decision: decision}
		}
		penalty := p.punish(ctx, msg, decision)
		return Outcome{Kind: OutcomeSpam, Decision: decision, Penalty: penalty}
	}

	if msg.IsCommand {
		if p.commandThrottled(msg.UserID, now) {
			return Outcome{Kind: OutcomeThrottled}
		}
		// Commands never count toward the reward interval.
		return Outcome{Kind: OutcomeSkipped}
	}
	if msg.IsMedia {
		return Outcome{Kind: OutcomeSkipped}
	}

	p.queue.Increment(storage.CollUsers,
		map[string]any{"_id": msg.UserID}, "stats.total_msgs", 1)
	p.queue.Increment(storage.CollDailyStats,
		map[string]any{"_id": storage.DateKey(now)},
		fmt.Sprintf("stats.%s.messages", msg.UserID), 1)

	if !p.event.OnMessage(ctx, now) {
		return Outcome{Kind: OutcomeCounted}
	}
	p.metrics.IncRewardTriggered()

	// Fail-closed: when eligibility cannot be decided, deny the reward and
	// rewind so the next qualifying message re-fires.
	verdict, err := storage.Resolve(ctx, p.conf.Mongo.Timeout, storage.FailClosed,
		eligibilityResult{reason: "store unavailable"},
		func(ctx context.Context) (eligibilityResult, error) {
			ok, why, err := p.eligibility.Eligible(ctx, user, msg)
			return eligibilityResult{ok: ok, reason: why}, err
		})
	if err != nil {
		p.logger.Errorf(providers.TypeReward, "eligibility check failed closed for %s: %s", msg.UserID, err)
	}
	if !verdict.ok {
		p.event.Rewind()
		p.metrics.IncRewardRerolled()
		p.logger.Infof(providers.TypeReward, "winner %s ineligible (%s), re-rolling", msg.UserID, verdict.reason)
		return Outcome{Kind: OutcomeRerolled, Decision: decision}
	}

	// Tier grading reads the buffered daily count fail-open: an unreadable
	// document just grades as the bottom tier.
	daily, err := storage.Resolve(ctx, p.conf.Mongo.Timeout, storage.FailOpen, (*models.DailyUserStats)(nil),
		func(ctx context.Context) (*models.DailyUserStats, error) {
			return p.gateway.GetDailyStatsCached(ctx, msg.UserID, msg.GroupID, storage.DateKey(now))
		})
	if err != nil {
		p.logger.Warnf(providers.TypeStore, "daily stats lookup failed open for %s: %s", msg.UserID, err)
	}
	var dailyMsgs int64
	if daily != nil {
		dailyMsgs = daily.Messages
	}

	payout := p.rewarder.Calculate(dailyMsgs, p.tracker.ActiveBonus())
	if err := p.gateway.CreditReward(ctx, msg.UserID, msg.GroupID, msg.Name, payout.Amount, now); err != nil {
		p.logger.Errorf(providers.TypeStore, "reward credit failed for %s: %s", msg.UserID, err)
	}
	p.logger.Infof(providers.TypeReward, "reward: %s (%s) won %d stocks, jackpot=%t",
		msg.UserID, payout.Tier, payout.Amount, payout.Jackpot)
	p.notifier.RewardWon(ctx, msg, payout.Amount)
	return Outcome{Kind: OutcomeRewarded, Reward: payout.Amount, Tier: payout.Tier, Jackpot: payout.Jackpot}
}

// OnMemberCount advances the milestone tracker against an externally
// observed member count.
func (p *PipelineService) OnMemberCount(ctx context.Context, count int64, now time.Time) {
	if !p.tracker.Snapshot().Enabled {
		return
	}
	if p.tracker.CheckExpiry(now) {
		p.logger.Infof(providers.TypeReward, "milestone bonus window expired")
	}
	triggered, threshold := p.tracker.CheckMilestone(count)
	if !triggered {
		return
	}
	reward, ok := p.tracker.Activate(threshold, now)
	if !ok {
		return
	}
	// Cache eviction rides on the tracker's persist callback, which saves
	// the settings document through SaveBotConfig.
	p.metrics.IncMilestoneActivated()
	p.logger.Infof(providers.TypeReward, "milestone %d activated: x%.1f for %.1fh",
		threshold, reward.Multiplier, reward.DurationHours)
	p.notifier.MilestoneActivated(ctx, threshold, reward)
}

// punish records the violation and, every violationsPerPenalty-th one,
// applies the next escalation step.
func (p *PipelineService) punish(ctx context.Context, msg Inbound, decision models.Decision) time.Duration {
	reason := fmt.Sprintf("%s: %s", decision.Kind, decision.Detail)
	count, err := p.gateway.AddViolation(ctx, msg.UserID, reason)
	if err != nil {
		p.logger.Errorf(providers.TypeStore, "violation record failed for %s: %s", msg.UserID, err)
		return 0
	}
	p.logger.Warnf(providers.TypeSpam, "spam from %s (%s), violations=%d", msg.UserID, reason, count)

	if count == 0 || count%violationsPerPenalty != 0 {
		return 0
	}
	step := count/violationsPerPenalty - 1
	if step >= len(penaltySteps) {
		step = len(penaltySteps) - 1
	}
	duration := penaltySteps[step]
	if err := p.gateway.PenalizeUser(ctx, msg.UserID, msg.GroupID, duration, reason); err != nil {
		p.logger.Errorf(providers.TypeStore, "penalty apply failed for %s: %s", msg.UserID, err)
		return 0
	}
	p.logger.Warnf(providers.TypeSpam, "penalized %s for %s (violations=%d)", msg.UserID, duration, count)
	return duration
}

func (p *PipelineService) commandThrottled(userID string, now time.Time) bool {
	cooldown := p.conf.Spam.CommandCooldown

	p.cooldownMu.Lock()
	defer p.cooldownMu.Unlock()
	if last, ok := p.lastCommand[userID]; ok && now.Sub(last) < cooldown {
		return true
	}
	// Expired entries carry no state worth keeping; sweep them at most
	// once per cooldown so the map stays bounded by active users.
	if now.Sub(p.lastCooldownSweep) >= cooldown {
		for uid, last := range p.lastCommand {
			if now.Sub(last) >= cooldown {
				delete(p.lastCommand, uid)
			}
		}
		p.lastCooldownSweep = now
	}
	p.lastCommand[userID] = now
	return false
}

type eligibilityResult struct {
	ok     bool
	reason string
}
