package source

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	bferrors "github.com/vnykmshr/backflow/pkg/common/errors"
	"github.com/vnykmshr/backflow/pkg/common/validation"
	"github.com/vnykmshr/backflow/pkg/metrics"
	"github.com/vnykmshr/backflow/pkg/streaming/demandbuffer"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// cronParser accepts standard five-field expressions, an optional leading
// seconds field, and descriptors such as @hourly or @every 5m.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// CronConfig configures a cron source.
type CronConfig struct {
	// Name labels log entries and metrics.
	Name string `yaml:"name"`

	// Expression is the cron expression to tick on. Ignored when Schedule is set.
	Expression string `yaml:"expression"`

	// Schedule overrides Expression with a ready-made schedule.
	Schedule cron.Schedule `yaml:"-"`

	// MaxRuns finishes the stream after that many ticks (0 = never).
	MaxRuns int `yaml:"max_runs"`

	// Location is the time zone the schedule is evaluated in (nil = time.Local).
	Location *time.Location `yaml:"-"`

	// Logger receives lifecycle events. Nil means zap.NewNop().
	Logger *zap.Logger `yaml:"-"`

	// Metrics counts emitted ticks and buffered values.
	Metrics *metrics.Registry `yaml:"-"`
}

// ParseSchedule parses expr with the parser Cron uses. Errors are
// *errors.ValidationError.
func ParseSchedule(expr string) (cron.Schedule, error) {
	if err := validation.ValidateNotEmpty("source", "Expression", expr); err != nil {
		return nil, err
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, bferrors.NewValidationError("source", "Expression", expr, err.Error()).
			WithHint("use a cron expression such as */5 * * * * or @every 1m")
	}
	return schedule, nil
}

// Cron returns a Publisher of tick times. Every subscriber runs its own
// schedule; ticks that fire before the subscriber asks for them are
// buffered and delivered in order as demand arrives. An invalid expression
// or a negative MaxRuns fails the subscriber with a *errors.ValidationError.
func Cron(config CronConfig) reactive.Publisher[time.Time] {
	return reactive.PublisherFunc[time.Time](func(s reactive.Subscriber[time.Time]) {
		schedule := config.Schedule
		if schedule == nil {
			var err error
			if schedule, err = ParseSchedule(config.Expression); err != nil {
				reject(s, err)
				return
			}
		}
		if err := validation.ValidateNonNegative("source", "MaxRuns", float64(config.MaxRuns)); err != nil {
			reject(s, err)
			return
		}

		sub := newCronSubscription(s, config)
		sub.cron.Schedule(schedule, cron.FuncJob(sub.tick))
		s.OnSubscribe(sub)
		sub.start()
	})
}

type cronSubscription struct {
	mu       sync.Mutex
	runs     int
	finished bool

	lifeMu  sync.Mutex
	stopped bool

	cron     *cron.Cron
	buffer   *demandbuffer.Buffer[time.Time]
	name     string
	maxRuns  int
	location *time.Location
	logger   *zap.Logger
	registry *metrics.Registry
}

func newCronSubscription(s reactive.Subscriber[time.Time], config CronConfig) *cronSubscription {
	name := config.Name
	if name == "" {
		name = "cron"
	}
	location := config.Location
	if location == nil {
		location = time.Local
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &cronSubscription{
		cron: cron.New(cron.WithLocation(location)),
		buffer: demandbuffer.NewWithConfig(s, demandbuffer.Config{
			Name:    name,
			Logger:  logger,
			Metrics: config.Metrics,
		}),
		name:     name,
		maxRuns:  config.MaxRuns,
		location: location,
		logger:   logger,
		registry: config.Metrics,
	}
}

func (c *cronSubscription) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finished {
		return
	}
	c.runs++
	if c.registry != nil {
		c.registry.SourceItems.WithLabelValues(c.name).Inc()
	}
	c.buffer.Offer(time.Now().In(c.location))

	if c.maxRuns > 0 && c.runs >= c.maxRuns {
		c.finished = true
		c.stop()
		c.logger.Debug("cron source reached max runs",
			zap.String("source", c.name),
			zap.Int("runs", c.runs))
		c.buffer.Complete(reactive.Finished)
	}
}

func (c *cronSubscription) Request(n reactive.Demand) {
	// Ticks are produced by the schedule, not by demand.
	c.buffer.Demand(n)
}

func (c *cronSubscription) Cancel() {
	c.stop()
	c.buffer.Cancel()
}

// start runs the schedule unless the subscriber already canceled.
func (c *cronSubscription) start() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if !c.stopped {
		c.cron.Start()
	}
}

func (c *cronSubscription) stop() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if !c.stopped {
		c.stopped = true
		c.cron.Stop()
	}
}
