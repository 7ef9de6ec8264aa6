package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce sync.Once
	taskOpsCounter  metric.Int64Counter
	spawnCounter    metric.Int64Counter
	spawnDuration   metric.Float64Histogram
	eventsCounter   metric.Int64Counter
	subscriberGauge metric.Int64ObservableGauge
	subscribers     int64
	subscribersMu   sync.Mutex
)

// InitMetrics creates the meter instruments. Safe to call multiple times; only
// runs once. Call after InitMeterProvider.
func InitMetrics(ctx context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		taskOpsCounter, err = m.Int64Counter("missionctl_task_operations_total", metric.WithDescription("Total task operations (create, move, assign, delete, etc.)"))
		if err != nil {
			return
		}
		spawnCounter, err = m.Int64Counter("missionctl_agent_spawns_total", metric.WithDescription("Total agent spawn attempts by outcome"))
		if err != nil {
			return
		}
		spawnDuration, err = m.Float64Histogram("missionctl_agent_spawn_duration_seconds", metric.WithDescription("Agent spawn duration in seconds"))
		if err != nil {
			return
		}
		eventsCounter, err = m.Int64Counter("missionctl_events_total", metric.WithDescription("Total controller events published"))
		if err != nil {
			return
		}
		subscriberGauge, err = m.Int64ObservableGauge("missionctl_event_subscribers", metric.WithDescription("Current event hub subscriber count"))
		if err != nil {
			return
		}
		_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			subscribersMu.Lock()
			n := subscribers
			subscribersMu.Unlock()
			o.ObserveInt64(subscriberGauge, n)
			return nil
		}, subscriberGauge)
		if err != nil {
			return
		}
	})
	return err
}

// RecordTaskOp records a task operation (create, move, assign, delete, etc.).
func RecordTaskOp(ctx context.Context, op string, status string) {
	if taskOpsCounter == nil {
		return
	}
	taskOpsCounter.Add(ctx, 1, metric.WithAttributes(
		AttrOperation.String(op),
		AttrStatus.String(status),
	))
}

// RecordSpawn records one spawn attempt and its duration.
func RecordSpawn(ctx context.Context, runtimeName, outcome string, duration time.Duration) {
	if spawnCounter != nil {
		spawnCounter.Add(ctx, 1, metric.WithAttributes(AttrRuntime.String(runtimeName), AttrStatus.String(outcome)))
	}
	if spawnDuration != nil {
		spawnDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(AttrRuntime.String(runtimeName)))
	}
}

// RecordEvent records one controller event published.
func RecordEvent(ctx context.Context) {
	if eventsCounter != nil {
		eventsCounter.Add(ctx, 1)
	}
}

// AddSubscriber adds 1 to the event subscriber gauge (call on subscribe).
func AddSubscriber() {
	subscribersMu.Lock()
	subscribers++
	subscribersMu.Unlock()
}

// RemoveSubscriber subtracts 1 from the event subscriber gauge.
func RemoveSubscriber() {
	subscribersMu.Lock()
	subscribers--
	if subscribers < 0 {
		subscribers = 0
	}
	subscribersMu.Unlock()
}

// TaskCountFunc returns task counts by status for the tasks gauge.
type TaskCountFunc func() map[string]int64

// AgentCountFunc returns (total, active) agent counts.
type AgentCountFunc func() (total, active int64)

// InitMetricsWithCounts creates instruments and registers gauge callbacks for
// tasks-by-status and agent counts. Nil funcs skip the matching gauge.
func InitMetricsWithCounts(ctx context.Context, taskCount TaskCountFunc, agentCount AgentCountFunc) error {
	if err := InitMetrics(ctx); err != nil {
		return err
	}
	m := Meter()
	if taskCount != nil {
		tasksGauge, err := m.Float64ObservableGauge("missionctl_tasks_total", metric.WithDescription("Number of tasks by status"))
		if err != nil {
			return err
		}
		if _, err := m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			for status, n := range taskCount() {
				o.ObserveFloat64(tasksGauge, float64(n), metric.WithAttributes(AttrStatus.String(status)))
			}
			return nil
		}, tasksGauge); err != nil {
			return err
		}
	}
	if agentCount != nil {
		agentsGauge, err := m.Float64ObservableGauge("missionctl_agents_total", metric.WithDescription("Number of agents (total and active)"))
		if err != nil {
			return err
		}
		if _, err := m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			total, active := agentCount()
			o.ObserveFloat64(agentsGauge, float64(total), metric.WithAttributes(AttrStatus.String("total")))
			o.ObserveFloat64(agentsGauge, float64(active), metric.WithAttributes(AttrStatus.String("active")))
			return nil
		}, agentsGauge); err != nil {
			return err
		}
	}
	return nil
}
