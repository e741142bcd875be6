// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// TermUI is a terminal-based UI.
type TermUI struct {
	mu    sync.Mutex
	w     io.Writer
	width int
}

// PrintLines implements the UI interface.
func (t *TermUI) PrintLines(msgs ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var buf bytes.Buffer
	if len(msgs) > 0 && msgs[0] == "\n" {
		msgs = msgs[1:]
	} else {
		// Clear the last N lines, where N is len(msgs).
		for i := 0; i < len(msgs)-1; i++ {
			fmt.Fprintf(&buf, "\r\033[K\033[A")
		}
		fmt.Fprintf(&buf, "\r\033[K")
	}
	writeLinesMaxWidth(&buf, msgs, t.width)
	flush(t.w, &buf)
}
