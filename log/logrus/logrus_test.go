package logrus

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unkn0wn-root/casredis"
)

func TestLogrusLogger(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := LogrusLogger{E: logrus.NewEntry(base).WithField("component", "cache")}

	l.Info("cas scripts loaded", casredis.Fields{"primaries": 3})

	e := hook.LastEntry()
	if e == nil || e.Level != logrus.InfoLevel || e.Message != "cas scripts loaded" {
		t.Fatalf("entry %+v", e)
	}
	if e.Data["primaries"] != 3 || e.Data["component"] != "cache" {
		t.Fatalf("data %v", e.Data)
	}
}
