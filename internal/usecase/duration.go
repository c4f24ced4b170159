package usecase

import (
	"sync"
	"time"

	"recordpanel/internal/domain"
)

// durationTracker accounts elapsed recording time, excluding paused intervals,
// from state-change notifications.
type durationTracker struct {
	now      func() time.Time
	interval time.Duration
	onTick   func(seconds int)

	mu          sync.Mutex
	started     bool
	paused      bool
	origin      time.Time
	pauseStart  time.Time
	pausedTotal time.Duration

	tickStop chan struct{}
	tickDone chan struct{}
}

func newDurationTracker(now func() time.Time, interval time.Duration, onTick func(int)) *durationTracker {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &durationTracker{now: now, interval: interval, onTick: onTick}
}

// Observe applies one state transition.
func (d *durationTracker) Observe(prev, next domain.RecorderState) {
	d.mu.Lock()
	switch next {
	case domain.StateRecording:
		at := d.now()
		if !d.started {
			d.started = true
			d.origin = at
			d.pausedTotal = 0
		} else if d.paused {
			d.pausedTotal += at.Sub(d.pauseStart)
			d.paused = false
		}
		d.mu.Unlock()
		d.startTicker()
		return
	case domain.StatePaused:
		if d.started && !d.paused && prev == domain.StateRecording {
			d.paused = true
			d.pauseStart = d.now()
		}
		d.mu.Unlock()
		d.stopTicker()
		return
	case domain.StateStopped, domain.StateIdle:
		d.started = false
		d.paused = false
		d.origin = time.Time{}
		d.pauseStart = time.Time{}
		d.pausedTotal = 0
		d.mu.Unlock()
		d.stopTicker()
		return
	}
	d.mu.Unlock()
}

// Seconds returns floor((now - origin - paused) / 1s), or 0 when not started.
func (d *durationTracker) Seconds() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.elapsedLocked()
}

// Ticking reports whether the periodic tick is scheduled.
func (d *durationTracker) Ticking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tickStop != nil
}

func (d *durationTracker) elapsedLocked() int {
	if !d.started {
		return 0
	}
	at := d.now()
	if d.paused {
		at = d.pauseStart
	}
	elapsed := at.Sub(d.origin) - d.pausedTotal
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / time.Second)
}

func (d *durationTracker) startTicker() {
	d.mu.Lock()
	if d.tickStop != nil {
		d.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	d.tickStop = stop
	d.tickDone = done
	d.mu.Unlock()

	go d.tickLoop(stop, done)
}

func (d *durationTracker) stopTicker() {
	d.mu.Lock()
	stop, done := d.tickStop, d.tickDone
	d.tickStop, d.tickDone = nil, nil
	d.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (d *durationTracker) tickLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			seconds := d.Seconds()
			if d.onTick != nil {
				d.onTick(seconds)
			}
		}
	}
}
