package config

import (
	"context"

	"amoled-bsp/bus"
)

const configPrefix = "config"

// Service publishes the active profile as retained messages, one per
// section, under config/<section>.
type Service struct {
	Board Board
}

func NewService(b Board) *Service { return &Service{Board: b} }

func (s *Service) sections() map[string]any {
	b := s.Board
	return map[string]any{
		"name":      b.Name,
		"i2c":       b.I2C,
		"addr":      b.Addr,
		"display":   b.Display,
		"touch":     b.Touch,
		"power":     b.Power,
		"timing":    b.Timing,
		"telemetry": b.Telemetry,
	}
}

// Publish sends every section synchronously.
func (s *Service) Publish(conn *bus.Connection) {
	for k, v := range s.sections() {
		conn.Publish(conn.NewMessage(bus.Topic{configPrefix, k}, v, true))
	}
}

// Start publishes in the background, skipping the work if ctx is already
// done.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if ctx.Err() != nil {
			return
		}
		s.Publish(conn)
	}()
}
