// Package telemetry publishes periodic clock, power and motion readings as
// retained bus messages, and answers bsp/<peripheral>/get requests.
package telemetry

import (
	"context"
	"time"

	"amoled-bsp/bus"
	"amoled-bsp/services/board"
	"amoled-bsp/services/config"
	"amoled-bsp/types"
	"amoled-bsp/x/logx"
	"amoled-bsp/x/timex"
)

const (
	Clock  = "clock"
	Power  = "power"
	Motion = "motion"
)

const DefaultInterval = time.Second

var (
	topicConfigTelemetry = bus.Topic{"config", "telemetry"}
	topicGet             = bus.T("bsp/+/get")
)

func ValueTopic(peripheral string) bus.Topic  { return bus.Topic{"bsp", peripheral, "value"} }
func StatusTopic(peripheral string) bus.Topic { return bus.Topic{"bsp", peripheral, "status"} }

// Service polls the board adapters. Adapters that were never initialised are
// skipped.
type Service struct {
	Board    *board.Board
	Interval time.Duration
	Log      logx.Logger

	links map[string]types.Link // written by Poll only
}

func New(b *board.Board, interval time.Duration, log logx.Logger) *Service {
	return &Service{Board: b, Interval: interval, Log: log}
}

// read returns the current value for one peripheral. ok is false when the
// adapter is not initialised or has nothing new.
func (s *Service) read(peripheral string) (v any, ok bool, err error) {
	switch peripheral {
	case Clock:
		c := s.Board.Clock()
		if !c.Initialized() {
			return nil, false, nil
		}
		now, err := c.Now()
		if err != nil {
			return nil, true, err
		}
		stopped, err := c.OscillatorStopped()
		if err != nil {
			return nil, true, err
		}
		return types.ClockValue{Unix: now.Unix(), Stopped: stopped}, true, nil
	case Power:
		p := s.Board.Power()
		if !p.Initialized() {
			return nil, false, nil
		}
		st, err := p.Status()
		if err != nil {
			return nil, true, err
		}
		return types.PowerValue{
			TempMilliC:       st.TempMilliC,
			BatteryMilliV:    st.BatteryMV,
			VbusMilliV:       st.VbusMV,
			SystemMilliV:     st.SystemMV,
			BatteryPercent:   st.BatteryPercent,
			State:            st.State.String(),
			VbusIn:           st.VbusIn,
			VbusGood:         st.VbusGood,
			BatteryConnected: st.BatteryConnected,
		}, true, nil
	case Motion:
		m := s.Board.Motion()
		if !m.Initialized() || !m.DataReady() {
			return nil, false, nil
		}
		smp, err := m.Sample()
		if err != nil {
			return nil, true, err
		}
		return types.MotionValue{
			AccelMilliG:  smp.AccelMilliG,
			GyroMilliDPS: smp.GyroMilliDPS,
			TempMilliC:   smp.TempMilliC,
			Timestamp:    smp.Timestamp,
		}, true, nil
	}
	return nil, false, nil
}

// setLink publishes a retained status when the link state changes.
func (s *Service) setLink(conn *bus.Connection, peripheral string, err error) {
	link, msg := types.LinkUp, ""
	if err != nil {
		link, msg = types.LinkDegraded, err.Error()
	}
	if s.links == nil {
		s.links = make(map[string]types.Link)
	}
	if prev, seen := s.links[peripheral]; seen && prev == link && err == nil {
		return
	}
	s.links[peripheral] = link
	conn.Publish(conn.NewMessage(StatusTopic(peripheral),
		types.Status{Link: link, TS: timex.NowMs(), Error: msg}, true))
	if err != nil {
		logx.OrNop(s.Log).Warnw("read failed", "peripheral", peripheral, "error", err)
	}
}

// Poll reads every peripheral once and publishes what it got.
func (s *Service) Poll(conn *bus.Connection) {
	for _, p := range []string{Clock, Power, Motion} {
		v, ok, err := s.read(p)
		if !ok {
			continue
		}
		if err == nil {
			conn.Publish(conn.NewMessage(ValueTopic(p), v, true))
		}
		s.setLink(conn, p, err)
	}
}

func (s *Service) reply(conn *bus.Connection, req *bus.Message) {
	if len(req.Topic) != 3 || req.ReplyTo == nil {
		return
	}
	v, ok, err := s.read(req.Topic[1])
	switch {
	case err != nil:
		conn.Reply(req, types.Status{Link: types.LinkDegraded, TS: timex.NowMs(), Error: err.Error()}, false)
	case !ok:
		conn.Reply(req, types.Status{Link: types.LinkDown, TS: timex.NowMs()}, false)
	default:
		conn.Reply(req, v, false)
	}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, cfgSub, getSub *bus.Subscription) {
	log := logx.OrNop(s.Log)
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(getSub)

	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Infow("telemetry stopping")
			return
		case <-tick.C:
			s.Poll(conn)
		case msg := <-getSub.Channel():
			s.reply(conn, msg)
		case msg := <-cfgSub.Channel():
			if c, ok := msg.Payload.(config.Telemetry); ok && c.IntervalMs > 0 {
				interval = time.Duration(c.IntervalMs) * time.Millisecond
				tick.Reset(interval)
				log.Infow("telemetry interval set", "interval", interval.String())
			}
		}
	}
}

// Start polls once, then runs the loop in the background until ctx is done.
// Requests published after Start returns are answered.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	cfgSub := conn.Subscribe(topicConfigTelemetry)
	getSub := conn.Subscribe(topicGet)
	s.Poll(conn)
	go s.serviceLoop(ctx, conn, cfgSub, getSub)
	return nil
}
