// Package logrus adapts a logrus entry to casredis.Logger.
//
// casredis fields map one to one onto logrus fields, so a decode failure
// comes out as msg="cached value decode failed, treating as miss" with key,
// type and err set. Attach a component field to E to tell cache events apart:
//
//	casredis.Options{Logger: logrus.LogrusLogger{E: log.WithField("component", "cache")}}
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/casredis"
)

var _ casredis.Logger = LogrusLogger{}

// LogrusLogger writes casredis events through E at the matching logrus level.
type LogrusLogger struct{ E *logrus.Entry }

func (l LogrusLogger) Debug(msg string, f casredis.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f casredis.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l LogrusLogger) Warn(msg string, f casredis.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l LogrusLogger) Error(msg string, f casredis.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
