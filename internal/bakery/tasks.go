// Package bakery bundles the oven/cake sample workflow used to exercise the
// engine end to end. It is illustrative only and not part of the execution
// engine itself.
package bakery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rezkam/taskengine/internal/domain"
	"github.com/rezkam/taskengine/internal/task"
)

// Task names for the three-step cake workflow.
const (
	PreheatOven = "bakery.preheat_oven"
	BakeCake    = "bakery.bake_cake"
	CoolCake    = "bakery.cool_cake"
)

// Order is the job_data payload threaded through all three steps.
type Order struct {
	CakeID        string `json:"cake_id"`
	OvenTempC     int    `json:"oven_temp_c"`
	BakeMinutes   int    `json:"bake_minutes"`
	PreheatChecks int    `json:"preheat_checks"`
}

func decodeOrder(data []byte) (Order, error) {
	var o Order
	if len(data) == 0 {
		return o, fmt.Errorf("bakery: empty job data")
	}
	if err := json.Unmarshal(data, &o); err != nil {
		return o, fmt.Errorf("bakery: invalid order payload: %w", err)
	}
	return o, nil
}

func encodeOrder(o Order) []byte {
	data, err := json.Marshal(o)
	if err != nil {
		// Order only has primitive fields; a marshal failure here would mean
		// a programming error, not a runtime condition to recover from.
		panic(fmt.Sprintf("bakery: marshal order: %v", err))
	}
	return data
}

// preheatOven is a Task that raises the oven's temperature by 40°C per check
// and advances to the bake step once it reaches 220°C, modeling a task that
// retries itself for a reason unrelated to failure (an external device
// hasn't reached temperature yet). Its schedule grants three retries, 30s
// apart; once they are used up, a check still below temperature re-runs the
// same task at the start time it returns, which is the current time.
type preheatOven struct{}

func (preheatOven) Name() string { return PreheatOven }

func (preheatOven) RetrySchedule() []time.Duration {
	return []time.Duration{30 * time.Second, 30 * time.Second, 30 * time.Second}
}

func (preheatOven) Execute(_ context.Context, in domain.ExecutionContext) (domain.ExecutionContext, error) {
	order, err := decodeOrder(in.JobData())
	if err != nil {
		return domain.ExecutionContext{}, err
	}

	const targetTempC = 220
	if order.OvenTempC < targetTempC {
		order.OvenTempC += 40
		order.PreheatChecks++
		// The worker computes the actual retry delay from the task's
		// schedule; this start time only has to satisfy should_retry's
		// non-absent construction rule.
		return domain.NewResultContext(domain.StatusInProgress, encodeOrder(order), PreheatOven, time.Now().UTC(), true, nil)
	}

	return domain.NewResultContext(domain.StatusInProgress, encodeOrder(order), BakeCake, time.Now().UTC(), false, nil)
}

// bakeCake runs for a fixed duration and then hands off to cooling. It
// declares no retry schedule: a failure here is not transient, it aborts
// the transaction and the job is re-leased for another attempt later.
type bakeCake struct{}

func (bakeCake) Name() string { return BakeCake }

func (bakeCake) RetrySchedule() []time.Duration { return nil }

func (bakeCake) Execute(_ context.Context, in domain.ExecutionContext) (domain.ExecutionContext, error) {
	order, err := decodeOrder(in.JobData())
	if err != nil {
		return domain.ExecutionContext{}, err
	}
	if order.BakeMinutes <= 0 {
		order.BakeMinutes = 35
	}

	coolStart := time.Now().UTC().Add(time.Duration(order.BakeMinutes) * time.Minute)
	return domain.NewResultContext(domain.StatusInProgress, encodeOrder(order), CoolCake, coolStart, false, nil)
}

// coolCake is the terminal step: once it runs, the cake is done and the job
// is retired.
type coolCake struct{}

func (coolCake) Name() string { return CoolCake }

func (coolCake) RetrySchedule() []time.Duration { return nil }

func (coolCake) Execute(_ context.Context, in domain.ExecutionContext) (domain.ExecutionContext, error) {
	if _, err := decodeOrder(in.JobData()); err != nil {
		return domain.ExecutionContext{}, err
	}
	return domain.NewResultContext(domain.StatusCompleted, nil, "", time.Time{}, false, nil)
}

// Tasks returns the three illustrative cake-workflow tasks, ready to hand to
// registry.Builder.Register.
func Tasks() []task.Task {
	return []task.Task{preheatOven{}, bakeCake{}, coolCake{}}
}

// NewOrderPayload builds the job_data for a fresh cake order, starting the
// oven at room temperature so the first preheat check always schedules a
// retry.
func NewOrderPayload(cakeID string) []byte {
	return encodeOrder(Order{CakeID: cakeID, OvenTempC: 20})
}
