// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"fmt"
	"sync"
	"time"
)

// Progress reports progress of tracing units.
type Progress struct {
	ui      UI
	started time.Time

	mu     sync.Mutex
	total  int
	done   int
	failed int
	items  int
}

// NewProgress returns a new Progress for total units.
func NewProgress(u UI, total int) *Progress {
	return &Progress{
		ui:      u,
		started: time.Now(),
		total:   total,
	}
}

// Done reports unit has finished with nitems items or err.
func (p *Progress) Done(unit string, nitems int, err error) {
	p.mu.Lock()
	p.done++
	p.items += nitems
	if err != nil {
		p.failed++
	}
	msg := fmt.Sprintf("[%d/%d] %s %s", p.done, p.total, FormatDuration(time.Since(p.started)), unit)
	p.mu.Unlock()
	if err != nil {
		// keep failed unit on screen.
		p.ui.PrintLines(SGR(Red, msg+" failed") + "\n")
		return
	}
	if !IsTerminal(p.ui) {
		return
	}
	p.ui.PrintLines(msg)
}

// Summary returns summary message of the progress.
func (p *Progress) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := fmt.Sprintf("traced %d units: %d items in %s", p.done, p.items, FormatDuration(time.Since(p.started)))
	if p.failed > 0 {
		msg += SGR(Red, fmt.Sprintf(" %d failed", p.failed))
	}
	return msg
}

// Finish prints summary.
func (p *Progress) Finish() {
	p.ui.PrintLines(p.Summary() + "\n")
}
