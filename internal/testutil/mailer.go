// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package testutil

import (
	"context"
	"regexp"
	"sync"

	"codeberg.org/oliverandrich/volunteerhub/internal/services/email"
)

var tokenPattern = regexp.MustCompile(`token=([0-9a-f]{64})`)

// FakeMailer records messages instead of sending them.
type FakeMailer struct {
	mu       sync.Mutex
	messages []email.Message
	Err      error
}

// Send records msg, or returns Err when set.
func (m *FakeMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *FakeMailer) Sent() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message(nil), m.messages...)
}

// Token extracts the token of the last recorded message, or "".
func (m *FakeMailer) Token() string {
	sent := m.Sent()
	if len(sent) == 0 {
		return ""
	}
	match := tokenPattern.FindStringSubmatch(sent[len(sent)-1].Body)
	if match == nil {
		return ""
	}
	return match[1]
}
