// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ui provides progress reporting on terminal or log.
package ui

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// UI is a user interface.
type UI interface {
	// PrintLines prints message lines.
	// If msgs starts with \n, it will print from the current line.
	// Otherwise, it will replace the last N lines, where N is len(msgs).
	PrintLines(msgs ...string)
}

// New returns UI writing to f.
// It returns TermUI if f is a terminal, LogUI otherwise.
func New(f *os.File) UI {
	if term.IsTerminal(int(f.Fd())) {
		width, _, _ := term.GetSize(int(f.Fd()))
		return &TermUI{w: f, width: width}
	}
	return LogUI{}
}

// IsTerminal returns whether u is a terminal UI.
func IsTerminal(u UI) bool {
	_, ok := u.(*TermUI)
	return ok
}

func writeLinesMaxWidth(w io.Writer, msgs []string, width int) {
	for i, msg := range msgs {
		if msg == "" {
			continue
		}
		// Truncate in middle if too long, unless it has newline.
		if width > 4 && len(msg)+3 > width-1 && !strings.Contains(msg, "\n") {
			msg = elideMiddle(msg, width)
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprint(w, msg)
	}
}

func elideMiddle(msg string, width int) string {
	chrs := make([]byte, 0, len(msg))
	sgrs := make([]string, 0, len(msg))
	var sgr string
	hasSGR := false
	const escapeSeq = "\033["
	for i := 0; i < len(msg); i++ {
		if strings.HasPrefix(msg[i:], escapeSeq) {
			i += len(escapeSeq)
			j := strings.Index(msg[i:], "m")
			if j < 0 {
				chrs = append(chrs, escapeSeq...)
				chrs = append(chrs, msg[i:]...)
				hasSGR = false
				break
			}
			hasSGR = true
			sgr = msg[i : i+j]
			i += j
			continue
		}
		chrs = append(chrs, msg[i])
		sgrs = append(sgrs, sgr)
	}
	const elideMarker = "..."
	if len(chrs) < width {
		return msg
	}
	n := (width - (len(elideMarker) + 1)) / 2
	if len(chrs)+len(elideMarker) <= width-1 || n > len(chrs) {
		return msg
	}
	if !hasSGR {
		return msg[:n] + elideMarker + msg[len(msg)-n:]
	}
	var sb strings.Builder
	writeSGR := func(cur *string, s string) {
		if s != *cur {
			sb.WriteString(escapeSeq)
			sb.WriteString(s)
			sb.WriteString("m")
			*cur = s
		}
	}
	cur := ""
	for i := 0; i < n; i++ {
		writeSGR(&cur, sgrs[i])
		sb.WriteByte(chrs[i])
	}
	if cur != "" && cur != "0" {
		sb.WriteString(escapeSeq + "0m")
	}
	sb.WriteString(elideMarker)
	cur = "0"
	for i := len(chrs) - n; i < len(chrs); i++ {
		writeSGR(&cur, sgrs[i])
		sb.WriteByte(chrs[i])
	}
	if cur != "" && cur != "0" {
		sb.WriteString(escapeSeq + "0m")
	}
	return sb.String()
}

// SGRCode is a code of select graphic rendition.
// https://en.wikipedia.org/wiki/ANSI_escape_code#SGR_(Select_Graphic_Rendition)_parameters
type SGRCode int

const (
	Bold SGRCode = iota
	Red
	Green
	Yellow
	Reset
)

var sgrEscSeq = map[SGRCode]string{
	Bold:   "\033[1m",
	Red:    "\033[31;1m",
	Green:  "\033[32m",
	Yellow: "\033[33m",
	Reset:  "\033[0m",
}

func (s SGRCode) String() string {
	return sgrEscSeq[s]
}

// SGR formats s in SGR (select graphic rendition).
func SGR(n SGRCode, s string) string {
	return fmt.Sprintf("%s%s%s", n, s, Reset)
}

// StripANSIEscapeCodes strips ANSI escape codes.
func StripANSIEscapeCodes(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\033' {
			sb.WriteByte(s[i])
			continue
		}
		// Only strip CSIs.
		if i+1 >= len(s) {
			break
		}
		if s[i+1] != '[' {
			continue
		}
		i += 2
		for i < len(s) && !((s[i] >= 'a' && s[i] <= 'z') || s[i] >= 'A' && s[i] <= 'Z') {
			i++
		}
	}
	return sb.String()
}

// flush writes buffered bytes to w at once.
func flush(w io.Writer, buf *bytes.Buffer) {
	w.Write(buf.Bytes())
	buf.Reset()
}
