// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"strings"

	"github.com/charmbracelet/log"
)

// LogUI is a log-based UI.
type LogUI struct{}

// PrintLines implements the UI interface.
// Each line is logged, stripping ansi escape sequence.
func (LogUI) PrintLines(msgs ...string) {
	log.Helper()
	for _, msg := range msgs {
		msg = strings.TrimSpace(msg)
		if msg == "" {
			continue
		}
		log.Info(StripANSIEscapeCodes(msg))
	}
}
