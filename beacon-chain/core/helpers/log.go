package helpers

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "core/helpers")
