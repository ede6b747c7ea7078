package pipeline

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "pipeline")
