package main

import (
	"strings"
	"sync"
)

// TextLogger keeps the last n log lines for the log pane.
type TextLogger struct {
	lines []string
	mx    sync.RWMutex
	n     int
	cb    func()
}

func NewTextLogger(n int) *TextLogger {
	return &TextLogger{
		lines: make([]string, 0),
		n:     n,
	}
}

func (l *TextLogger) Write(p []byte) (n int, err error) {
	if l == nil {
		return
	}

	l.AddLine(strings.TrimRight(string(p), "\n"))

	return len(p), nil
}

func (l *TextLogger) AddLine(s string) {
	if l == nil {
		return
	}

	l.mx.Lock()

	l.lines = append(l.lines, s)
	if len(l.lines) > l.n {
		l.lines = l.lines[len(l.lines)-l.n:]
	}

	cb := l.cb
	l.mx.Unlock()

	if cb != nil {
		cb()
	}
}

func (l *TextLogger) SetCallback(cb func()) {
	l.mx.Lock()
	l.cb = cb
	l.mx.Unlock()
}

// GetLines returns up to the last n lines.
func (l *TextLogger) GetLines(n int) []string {
	l.mx.RLock()
	defer l.mx.RUnlock()

	if n <= 0 || n > len(l.lines) {
		n = len(l.lines)
	}

	return append([]string(nil), l.lines[len(l.lines)-n:]...)
}
