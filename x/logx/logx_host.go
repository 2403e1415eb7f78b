//go:build !tinygo

package logx

import "github.com/edaniels/golog"

// New returns a development logger named after the calling component.
func New(name string) Logger { return golog.NewDevelopmentLogger(name) }
