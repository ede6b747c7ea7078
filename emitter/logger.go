package emitter

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "emitter")
