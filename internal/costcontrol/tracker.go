package costcontrol

import (
	"log"
	"sync"
	"time"
)

// CostTracker tracks model call costs and enforces limits
type CostTracker struct {
	mu               sync.RWMutex
	dailyCallLimit   int
	perTaskCostLimit float64
	alertThreshold   float64

	// Daily tracking
	dailyCalls     int
	dailyCost      float64
	dailyResetTime time.Time

	// Per-task tracking
	taskCosts map[string]float64
}

// NewCostTracker creates a new cost tracker
func NewCostTracker(dailyCallLimit int, perTaskCostLimit, alertThreshold float64) *CostTracker {
	now := time.Now()

	return &CostTracker{
		dailyCallLimit:   dailyCallLimit,
		perTaskCostLimit: perTaskCostLimit,
		alertThreshold:   alertThreshold,
		dailyResetTime:   time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location()),
		taskCosts:        make(map[string]float64),
	}
}

// CanMakeCall checks if a new call is allowed under the daily limit
func (ct *CostTracker) CanMakeCall() bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.resetDailyIfNeeded()

	return ct.dailyCalls < ct.dailyCallLimit
}

// CanSpend checks if spending on a task is allowed under the per-task limit
func (ct *CostTracker) CanSpend(taskID string, additionalCost float64) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	return (ct.taskCosts[taskID] + additionalCost) <= ct.perTaskCostLimit
}

// RecordCost records the cost of a model call
func (ct *CostTracker) RecordCost(taskID string, cost float64) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.resetDailyIfNeeded()

	ct.dailyCalls++
	ct.dailyCost += cost
	ct.taskCosts[taskID] += cost

	if ct.dailyCost >= ct.alertThreshold {
		log.Printf("COST ALERT: Daily cost %.2f exceeds threshold %.2f", ct.dailyCost, ct.alertThreshold)
	}
	if ct.taskCosts[taskID] >= ct.alertThreshold {
		log.Printf("COST ALERT: Task %s cost %.2f exceeds threshold %.2f", taskID, ct.taskCosts[taskID], ct.alertThreshold)
	}
}

// TaskCost returns the accumulated cost for a task
func (ct *CostTracker) TaskCost(taskID string) float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.taskCosts[taskID]
}

// DailyStats returns today's call count and cost
func (ct *CostTracker) DailyStats() (int, float64) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.resetDailyIfNeeded()
	return ct.dailyCalls, ct.dailyCost
}

// resetDailyIfNeeded resets daily counters after midnight. Callers must hold
// the write lock.
func (ct *CostTracker) resetDailyIfNeeded() {
	now := time.Now()
	if now.After(ct.dailyResetTime) {
		ct.dailyCalls = 0
		ct.dailyCost = 0
		ct.dailyResetTime = time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	}
}
