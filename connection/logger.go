package connection

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "connection")
