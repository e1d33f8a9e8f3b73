// Copyright 2024 cronwheel authors. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file in the root of the source
// tree.

package cronwheel

import (
	"testing"
	"time"
)

func TestParseCronValidExpressions(t *testing.T) {
	exprs := []string{
		"@every 1s",
		"@hourly",
		"0 0 * * * *",
		"*/5 * * * * *",
	}
	for _, expr := range exprs {
		if _, err := ParseCron(expr); err != nil {
			t.Errorf("ParseCron(%q): unexpected error: %s", expr, err)
		}
	}
}

func TestParseCronInvalidExpression(t *testing.T) {
	_, err := ParseCron("not a cron expression at all")
	if err != ErrInvalidCron {
		t.Fatalf("expected ErrInvalidCron, got %v", err)
	}
}

func TestParseCronYearFieldUnsupported(t *testing.T) {
	// Seven fields (the trailing "2026" is a year field) is rejected: the
	// underlying parser only understands six.
	_, err := ParseCron("0 0 0 1 1 * 2026")
	if err != ErrInvalidCron {
		t.Fatalf("expected ErrInvalidCron for a 7-field expression, got %v", err)
	}
}

func TestParseCronNextIsStrictlyAfter(t *testing.T) {
	iter, err := ParseCron("@every 1s")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next, ok := iter.Next(base)
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if !next.After(base) {
		t.Fatalf("expected %v to be strictly after %v", next, base)
	}
	if next.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", next.Location())
	}
}
