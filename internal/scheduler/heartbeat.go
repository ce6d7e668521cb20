// Package scheduler runs the heartbeat loop that drives lifecycle passes,
// streak scans and digest dispatch across every tracked group. One group
// failing never aborts the loop; its error is logged and the next group runs.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/digest"
	"github.com/DeanCryptoo/YabaiBot/internal/lifecycle"
	"github.com/DeanCryptoo/YabaiBot/internal/observability"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
	"github.com/DeanCryptoo/YabaiBot/internal/streak"
)

// DefaultInterval is the sleep between heartbeat iterations.
const DefaultInterval = 600 * time.Second

// Heartbeat is the periodic driver. Create with New, start with Run; Run
// blocks until its context is cancelled and drains the in-flight iteration
// before returning.
type Heartbeat struct {
	calls     storage.CallStore
	settings  storage.SettingStore
	lifecycle *lifecycle.Manager
	streaks   *streak.Detector
	digests   *digest.Dispatcher

	interval time.Duration
	logger   *log.Logger

	done chan struct{}
}

// Options for creating a Heartbeat.
type Options struct {
	Calls     storage.CallStore
	Settings  storage.SettingStore
	Lifecycle *lifecycle.Manager
	Streaks   *streak.Detector
	Digests   *digest.Dispatcher

	Interval time.Duration // 0 means DefaultInterval
	Logger   *log.Logger
}

// New creates a Heartbeat.
func New(opts Options) *Heartbeat {
	h := &Heartbeat{
		calls:     opts.Calls,
		settings:  opts.Settings,
		lifecycle: opts.Lifecycle,
		streaks:   opts.Streaks,
		digests:   opts.Digests,
		interval:  opts.Interval,
		logger:    opts.Logger,
		done:      make(chan struct{}),
	}
	if h.interval == 0 {
		h.interval = DefaultInterval
	}
	if h.logger == nil {
		h.logger = log.New(os.Stdout, "[heartbeat] ", log.LstdFlags)
	}
	return h
}

// Run starts the loop and blocks until ctx is cancelled. The first iteration
// runs immediately, then every interval. Always returns ctx.Err().
func (h *Heartbeat) Run(ctx context.Context) error {
	defer close(h.done)

	h.logger.Printf("heartbeat started, interval %v", h.interval)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			h.logger.Println("heartbeat stopping...")
			return ctx.Err()
		case <-ticker.C:
			h.runOnce(ctx)
		}
	}
}

// Wait blocks until Run has fully returned. Call after cancelling Run's
// context to make shutdown deterministic.
func (h *Heartbeat) Wait() {
	<-h.done
}

func (h *Heartbeat) runOnce(ctx context.Context) {
	groups, err := h.trackedGroups(ctx)
	if err != nil {
		h.logger.Printf("enumerate groups: %v", err)
		return
	}
	observability.UpdateGroupsTracked(len(groups))

	for _, groupID := range groups {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		err := h.runGroup(ctx, groupID)
		status := "ok"
		if err != nil {
			status = "error"
			h.logger.Printf("group %d heartbeat: %v", groupID, err)
		}
		observability.RecordHeartbeat(status, time.Since(start).Seconds())
	}
}

// runGroup executes one group's heartbeat legs. A panic in any leg is
// contained here so a poisoned group cannot kill the loop.
func (h *Heartbeat) runGroup(ctx context.Context, groupID int64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	out, err := h.lifecycle.RunGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("lifecycle: %w", err)
	}
	if out.StashedLow+out.StashedOld+out.Archived+out.Reactivated > 0 {
		h.logger.Printf("group %d: refreshed %d, stashed %d+%d, reactivated %d, archived %d",
			groupID, out.Refreshed, out.StashedLow, out.StashedOld, out.Reactivated, out.Archived)
	}

	if _, err := h.streaks.Scan(ctx, groupID, false); err != nil {
		return fmt.Errorf("streak scan: %w", err)
	}

	if _, err := h.digests.Dispatch(ctx, groupID, false); err != nil {
		return fmt.Errorf("digest: %w", err)
	}
	return nil
}

// trackedGroups returns the union of groups with call records and groups
// with settings rows, sorted for a stable iteration order.
func (h *Heartbeat) trackedGroups(ctx context.Context) ([]int64, error) {
	fromCalls, err := h.calls.GroupIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("call groups: %w", err)
	}
	fromSettings, err := h.settings.GroupIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("setting groups: %w", err)
	}

	seen := make(map[int64]struct{}, len(fromCalls)+len(fromSettings))
	var groups []int64
	for _, id := range fromCalls {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			groups = append(groups, id)
		}
	}
	for _, id := range fromSettings {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			groups = append(groups, id)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups, nil
}
