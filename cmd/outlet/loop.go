package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/wifi-outlet/internal/control"
	"github.com/sweeney/wifi-outlet/internal/gpio"
	"github.com/sweeney/wifi-outlet/internal/logic"
	"github.com/sweeney/wifi-outlet/internal/metrics"
	"github.com/sweeney/wifi-outlet/internal/mqtt"
	"github.com/sweeney/wifi-outlet/internal/schedule"
	"github.com/sweeney/wifi-outlet/internal/status"
)

const storeTimeout = 5 * time.Second

// loop owns the outlet model, the button and the scheduler. Everything else
// reaches them through the command channels.
type loop struct {
	log       *slog.Logger
	hw        gpio.Outlet
	publisher mqtt.Publisher
	conn      mqtt.ConnectionStatus // may be nil
	tracker   *status.Tracker
	metrics   *metrics.Metrics
	store     scheduleStore
	sched     *schedule.Scheduler
	loc       *time.Location
	outlet    *logic.Outlet
	button    *logic.Button
	heartbeat *logic.Heartbeat // nil when disabled

	now        func() time.Time
	clockValid func() bool
	network    func() *status.NetworkInfo // may be nil

	generation uint64
}

// run processes ticks, commands and signals until a signal arrives.
// mqttCommands may be nil.
func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal, commands <-chan control.Command, mqttCommands <-chan []byte) error {
	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case cmd := <-commands:
			l.execute(cmd)

		case payload, ok := <-mqttCommands:
			if !ok {
				mqttCommands = nil
				continue
			}
			cmd, err := control.Parse(payload, logic.SourceMQTT)
			if err != nil {
				l.log.Warn("rejected mqtt command", "err", err, "payload", string(payload))
				l.metrics.Commands.WithLabelValues("invalid", "rejected").Inc()
				continue
			}
			l.execute(cmd)

		case <-tick:
			l.step()
		}
	}
}

// step runs one poll: button, schedule, status, heartbeat.
func (l *loop) step() {
	t := l.now()

	pressed, err := l.hw.Button()
	if err != nil {
		l.log.Warn("button read error", "err", err)
	} else if l.button.Process(pressed, t) {
		l.log.Info("button pressed")
		l.toggle(logic.SourceButton, t)
	}

	valid := l.clockValid()
	for _, a := range l.sched.Tick(schedule.ReadingAt(t.In(l.loc), valid)) {
		l.log.Info("cycle edge", "cycle", a.Cycle, "action", a.Kind.String(), "at", schedule.FormatClock(a.Minute))
		l.set(a.Kind == schedule.Assert, logic.SourceSchedule, a.Cycle, t)
	}
	if g := l.sched.Generation(); g != l.generation {
		l.generation = g
		l.resolved()
	}

	// Update status tracker for HTTP consumers
	l.tracker.Update(l.outlet.State(), l.outlet.Counts(), valid)
	metrics.SetBool(l.metrics.ClockSynced, valid)
	if l.conn != nil {
		l.tracker.SetMQTTConnected(l.conn.IsConnected())
	}

	if hb := l.heartbeat.Check(t, l.outlet.Counts()); hb != nil {
		l.log.Info("heartbeat", "uptime", hb.Uptime.Truncate(time.Second), "on", hb.Counts.On, "off", hb.Counts.Off)
		if l.network != nil {
			if net := l.network(); net != nil {
				l.tracker.SetNetwork(net)
			}
		}
		snap := l.tracker.Snapshot()
		event := mqtt.SystemEvent{
			Timestamp: hb.Timestamp,
			Event:     "HEARTBEAT",
			Body:      status.FormatStatusEvent(snap, "HEARTBEAT", ""),
		}
		if err := l.publisher.PublishSystem(event); err != nil {
			l.log.Warn("heartbeat publish error", "err", err)
		}
	}
}

// resolved records a freshly built cycle table.
func (l *loop) resolved() {
	st := l.sched.Status()
	l.tracker.SetSchedule(st)
	l.metrics.Resolutions.Inc()
	l.metrics.Daylight.Set(st.Sun.Daylight().Seconds())

	active := 0
	for _, c := range st.Cycles {
		if c.Resolved.Active() {
			active++
		}
	}
	l.log.Info("schedule resolved", "day", st.Sun.Kind.String(), "active", active, "cycles", len(st.Cycles))
}

// drive writes the relay and reads it back.
func (l *loop) drive(on bool) error {
	if err := l.hw.SetRelay(on); err != nil {
		return err
	}
	got, err := l.hw.Relay()
	if err != nil {
		return fmt.Errorf("read back relay: %w", err)
	}
	if got != on {
		return fmt.Errorf("relay reads %s after writing %s", logic.StateFor(got), logic.StateFor(on))
	}
	return nil
}

// set drives the relay and, once the hardware has accepted the write,
// records and publishes the transition.
func (l *loop) set(on bool, source logic.Source, cycle int, t time.Time) {
	if l.outlet.State() == logic.StateFor(on) {
		return
	}
	if err := l.drive(on); err != nil {
		l.log.Error("relay write error", "err", err, "on", on)
		return
	}
	l.record(l.outlet.Apply(on, source, cycle, t))
}

// toggle flips the relay from a button press or a remote toggle.
func (l *loop) toggle(source logic.Source, t time.Time) {
	on := l.outlet.State() != logic.StateOn
	if err := l.drive(on); err != nil {
		l.log.Error("relay write error", "err", err, "on", on)
		return
	}
	l.record(l.outlet.Toggle(source, t))
}

func (l *loop) record(event *logic.Event) {
	if event == nil {
		return
	}
	l.log.Info("event", "type", event.Type, "source", event.Source, "cycle", event.Cycle)
	l.metrics.Transitions.WithLabelValues(string(event.State), string(event.Source)).Inc()
	metrics.SetBool(l.metrics.Relay, event.State == logic.StateOn)
	if err := l.publisher.Publish(*event); err != nil {
		// Don't crash on publish failure
		l.log.Warn("publish error", "err", err)
	}
}

// execute applies a validated remote command.
func (l *loop) execute(cmd control.Command) {
	err := l.apply(cmd)
	result := "ok"
	if err != nil {
		result = "error"
		l.log.Error("command failed", "kind", cmd.Kind, "source", cmd.Source, "err", err)
	} else {
		l.log.Info("command", "kind", cmd.Kind, "source", cmd.Source)
	}
	l.metrics.Commands.WithLabelValues(string(cmd.Kind), result).Inc()
	l.tracker.Update(l.outlet.State(), l.outlet.Counts(), l.clockValid())
}

func (l *loop) apply(cmd control.Command) error {
	t := l.now()
	switch cmd.Kind {
	case control.KindOn, control.KindOff:
		l.set(cmd.Kind == control.KindOn, cmd.Source, logic.NoCycle, t)
		return nil

	case control.KindToggle:
		l.toggle(cmd.Source, t)
		return nil

	case control.KindEnable, control.KindDisable:
		enabled := cmd.Kind == control.KindEnable
		cfg := l.sched.Config()
		cfg.Enabled = enabled
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := l.store.SetEnabled(ctx, enabled); err != nil {
			return fmt.Errorf("persist schedule switch: %w", err)
		}
		return l.reconfigure(cfg)

	case control.KindSetCycle:
		cfg, err := l.sched.Config().WithCycle(cmd.Cycle, cmd.Rule)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := l.store.SaveCycle(ctx, cmd.Cycle, cmd.Rule); err != nil {
			return fmt.Errorf("persist cycle %d: %w", cmd.Cycle, err)
		}
		return l.reconfigure(cfg)
	}
	return fmt.Errorf("%w: %q", control.ErrUnknownCommand, cmd.Kind)
}

// reconfigure hands the scheduler a new snapshot; the table is rebuilt on
// the next tick.
func (l *loop) reconfigure(cfg schedule.Config) error {
	if err := l.sched.Apply(cfg); err != nil {
		return err
	}
	l.tracker.SetSchedule(l.sched.Status())
	return nil
}

func (l *loop) shutdown(s os.Signal) {
	l.log.Info("shutting down", "signal", s)
	signalName := "UNKNOWN"
	switch s {
	case syscall.SIGINT:
		signalName = "SIGINT"
	case syscall.SIGTERM:
		signalName = "SIGTERM"
	}

	if l.conn != nil {
		l.tracker.SetMQTTConnected(l.conn.IsConnected())
	}
	l.tracker.Update(l.outlet.State(), l.outlet.Counts(), l.clockValid())
	snap := l.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
		Body:      status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.log.Warn("failed to publish shutdown event", "err", err)
	} else {
		l.log.Info("published shutdown event")
	}
}
