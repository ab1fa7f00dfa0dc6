// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package db

// RecordEvent appends one audit-trail row. Errors are returned rather than
// logged: callers on the hot validate_record path decide for themselves
// whether a persistence failure should be fatal.
func (s *State) RecordEvent(e AuditEvent) error {
	return s.DB.Create(&e).Error
}

// RecentEvents returns up to limit audit rows for connID, newest first.
func (s *State) RecentEvents(connID string, limit int) ([]AuditEvent, error) {
	var events []AuditEvent
	err := s.DB.Where("connection_id = ?", connID).
		Order("id desc").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// ScenarioNames lists spec.md §8's named seed scenarios, S1 through S6, for
// the CLI to enumerate. Only S1 has a context-free fixture (ComputeS1); the
// rest (S2-S6) are exercised by internal/handshake's tests and validated
// live rather than stored, since they depend on a ClientHello/ServerHello
// transcript that only exists mid-handshake.
var ScenarioNames = []string{"S1", "S2", "S3", "S4", "S5", "S6"}
