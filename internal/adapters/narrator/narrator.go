// Package narrator is the consumer side of the narration rendezvous. It
// turns announcements into typed battle-log units and acknowledges each one
// once its text has been fully typed, so the scheduler never runs ahead of
// the story.
package narrator

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/xianxia/internal/adapters/mq/bus"
	"github.com/okian/xianxia/internal/adapters/mq/queue"
	"github.com/okian/xianxia/internal/adapters/mq/worker"
	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/domain/narration"
	"github.com/okian/xianxia/pkg/logger"
	"github.com/okian/xianxia/pkg/metrics"
)

// Default narrator configuration constants.
const (
	defaultTypingSpeed   = 40 * time.Millisecond
	defaultEndSettle     = time.Second
	defaultLookupTimeout = 200 * time.Millisecond
	defaultQueueCapacity = 64

	// JoinOperator glues the damage line onto the skill line.
	JoinOperator = ". "

	slowTypingCost = 30
)

// Job is one announcement waiting to be narrated.
type Job struct {
	Event    event.Event
	Enqueued time.Time
}

// Narrator narrates one bus. Jobs are typed one at a time in arrival order.
type Narrator struct {
	client *bus.Client
	gen    *narration.Generator
	queue  *queue.InMemoryQueue[Job]
	worker *worker.InMemoryWorker[Job]

	typingSpeed   time.Duration
	endSettle     time.Duration
	lookupTimeout time.Duration
	capacity      int

	logger logger.Logger
}

// Option applies a configuration option to the Narrator.
type Option func(*Narrator)

// WithGenerator sets the text generator.
func WithGenerator(g *narration.Generator) Option {
	return func(n *Narrator) {
		if g != nil {
			n.gen = g
		}
	}
}

// WithTypingSpeed sets the delay before each typed unit. Expensive skills
// type at twice the delay.
func WithTypingSpeed(d time.Duration) Option {
	return func(n *Narrator) {
		if d >= 0 {
			n.typingSpeed = d
		}
	}
}

// WithEndSettle sets the pause between the end text and its acknowledgement.
func WithEndSettle(d time.Duration) Option {
	return func(n *Narrator) {
		if d >= 0 {
			n.endSettle = d
		}
	}
}

// WithLookupTimeout bounds the character-state lookup. Zero disables lookups
// and narrates from the copies carried by the events.
func WithLookupTimeout(d time.Duration) Option {
	return func(n *Narrator) {
		if d >= 0 {
			n.lookupTimeout = d
		}
	}
}

// WithQueueCapacity sets how many announcements may wait.
func WithQueueCapacity(c int) Option {
	return func(n *Narrator) {
		if c > 0 {
			n.capacity = c
		}
	}
}

// WithLogger sets a custom logger for the narrator.
func WithLogger(l logger.Logger) Option {
	return func(n *Narrator) {
		if l != nil {
			n.logger = l
		}
	}
}

// New subscribes a narrator to b. Nothing is typed until Run is called.
func New(b *bus.Bus, opts ...Option) *Narrator {
	n := &Narrator{
		client:        b.NewClient(),
		typingSpeed:   defaultTypingSpeed,
		endSettle:     defaultEndSettle,
		lookupTimeout: defaultLookupTimeout,
		capacity:      defaultQueueCapacity,
		logger:        logger.Get().Named("narrator"),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.gen == nil {
		n.gen = narration.New()
	}
	n.queue = queue.NewInMemoryQueue[Job](queue.WithCapacity(n.capacity))
	n.worker = worker.NewInMemoryWorker[Job](n.queue, worker.ProcessorFunc[Job](n.Process),
		worker.WithName("narration"),
		worker.WithLogger(n.logger),
	)

	n.client.Subscribe(n.enqueue,
		event.KindBattleStart, event.KindSkillUse, event.KindDamageDealt, event.KindBattleEnd)
	return n
}

// Run types queued announcements until ctx ends or Close is called.
func (n *Narrator) Run(ctx context.Context) error {
	n.worker.Run(ctx)
	return ctx.Err()
}

// Close unsubscribes from the bus and stops the worker. Announcements still
// queued are dropped without acknowledgement.
func (n *Narrator) Close(ctx context.Context) error {
	n.client.Destroy()
	if err := n.queue.Close(); err != nil {
		return fmt.Errorf("close narration queue: %w", err)
	}
	if err := n.worker.Shutdown(ctx); err != nil {
		return fmt.Errorf("stop narration worker: %w", err)
	}
	return nil
}

// enqueue runs on the bus dispatch goroutine and must not block. When the
// queue refuses a job the announcement is acknowledged at once so the
// scheduler is not left waiting.
func (n *Narrator) enqueue(e event.Event) {
	ctx := context.Background()
	if n.queue.Enqueue(ctx, Job{Event: e, Enqueued: time.Now()}) {
		return
	}
	metrics.RecordNarrationJob(string(e.Kind()), "dropped")
	n.logger.Warn(ctx, "narration queue refused job, acknowledging untold",
		logger.String("kind", string(e.Kind())),
	)
	if ack := acknowledgement(e); ack != nil {
		n.client.Publish(ack)
	}
}

// Process narrates one announcement and then acknowledges it.
func (n *Narrator) Process(ctx context.Context, job Job) error {
	start := time.Now()
	kind := string(job.Event.Kind())

	err := n.narrate(ctx, job.Event)
	metrics.RecordNarrationLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordNarrationJob(kind, "error")
		return fmt.Errorf("narrate %s: %w", kind, err)
	}
	metrics.RecordNarrationJob(kind, "ok")

	if ack := acknowledgement(job.Event); ack != nil {
		n.client.Publish(ack)
	}
	n.logger.Debug(ctx, "narrated",
		logger.String("kind", kind),
		logger.Duration("queued", start.Sub(job.Enqueued)),
	)
	return nil
}

func (n *Narrator) narrate(ctx context.Context, e event.Event) error {
	switch ev := e.(type) {
	case event.BattleStart:
		if err := n.typeText(ctx, n.gen.Environment(), event.LogEntry{}, n.typingSpeed); err != nil {
			return err
		}
		return n.typeText(ctx, "", event.LogEntry{NewParagraph: true, Buffer: true}, n.typingSpeed)

	case event.SkillUse:
		from := n.lookup(ctx, ev.From)
		speed := n.typingSpeed
		if ev.Skill.Cost > slowTypingCost {
			speed *= 2
		}
		if err := n.typeText(ctx, n.gen.SkillUse(from, ev.Skill, ev.Success), event.LogEntry{}, speed); err != nil {
			return err
		}
		if err := n.typeText(ctx, "", event.LogEntry{}, n.typingSpeed); err != nil {
			return err
		}
		n.publish(event.LogEntry{Type: event.LogNormal, JoinOperator: JoinOperator})
		return nil

	case event.DamageDealt:
		to := n.lookup(ctx, ev.To)
		if err := n.typeText(ctx, n.gen.Damage(to, ev.Damage), event.LogEntry{}, n.typingSpeed); err != nil {
			return err
		}
		return n.typeText(ctx, "", event.LogEntry{NewParagraph: true, Buffer: true}, n.typingSpeed)

	case event.BattleEnd:
		if err := n.typeText(ctx, n.gen.BattleEnd(ev.Winner), event.LogEntry{}, n.typingSpeed); err != nil {
			return err
		}
		return sleep(ctx, n.endSettle)

	default:
		return nil
	}
}

// typeText publishes text unit by unit with a delay before each unit. Empty
// text publishes a single empty entry so its paragraph flags still apply.
func (n *Narrator) typeText(ctx context.Context, text string, flags event.LogEntry, speed time.Duration) error {
	units := narration.Units(text)
	if len(units) == 0 {
		flags.Type = event.LogNormal
		n.publish(flags)
		return nil
	}
	for _, u := range units {
		if err := sleep(ctx, speed); err != nil {
			return err
		}
		entry := flags
		entry.Type = event.LogNormal
		entry.Content = u
		n.publish(entry)
	}
	return nil
}

func (n *Narrator) publish(entry event.LogEntry) {
	n.client.Publish(event.AppendBattleLog{Entry: entry})
}

// lookup refreshes a participant from its owner, falling back to the copy
// carried by the announcement.
func (n *Narrator) lookup(ctx context.Context, p model.Participant) model.Participant {
	if n.lookupTimeout <= 0 {
		return p
	}
	lctx, cancel := context.WithTimeout(ctx, n.lookupTimeout)
	defer cancel()
	resp, err := bus.Request(lctx, n.client, event.RequestCharacterState{ID: p.ID},
		func(r event.ResponseCharacterState) bool { return r.Participant.ID == p.ID })
	if err != nil {
		n.logger.Debug(ctx, "character lookup failed, using announced state",
			logger.String("participant", string(p.ID)),
			logger.Error(err),
		)
		return p
	}
	return resp.Participant
}

func acknowledgement(e event.Event) event.Event {
	switch e.(type) {
	case event.SkillUse:
		return event.SkillUseDescEnd{}
	case event.DamageDealt:
		return event.DamageDealtDescEnd{}
	case event.BattleEnd:
		return event.BattleEndDescEnd{}
	default:
		return nil
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
