// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package ingenicboot

import (
	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger = nil
)

func init() {
	logger = logrus.New()
}

// SetLogger replaces the logger used for protocol diagnostics.
func SetLogger(loggerInstance *logrus.Logger) {
	if loggerInstance == nil {
		return
	}

	logger = loggerInstance
}
