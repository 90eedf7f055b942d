// Copyright 2025 The Pulsegraph Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package log provides severity-prefixed, context-tagged logging.
// Messages are formatted redactably via cockroachdb/redact and carry the
// tags attached to the context with cockroachdb/logtags.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

type severity int

const (
	severityInfo severity = iota
	severityWarning
	severityError
	severityFatal
)

var severityChar = [...]byte{'I', 'W', 'E', 'F'}

var logging struct {
	mu sync.Mutex
	w  io.Writer

	// vLevel gates V and VEventf; stored atomically so tests can flip it
	// without holding mu.
	vLevel int32
}

func init() {
	logging.w = os.Stderr
}

// SetOutput redirects log output, returning the previous writer.
func SetOutput(w io.Writer) io.Writer {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	prev := logging.w
	logging.w = w
	return prev
}

// SetVerbosity sets the verbosity level for V and VEventf.
func SetVerbosity(level int32) {
	atomic.StoreInt32(&logging.vLevel, level)
}

// V reports whether verbosity is at or above level.
func V(level int32) bool {
	return atomic.LoadInt32(&logging.vLevel) >= level
}

// Infof logs an informational message.
func Infof(ctx context.Context, format string, args ...interface{}) {
	output(ctx, severityInfo, format, args...)
}

// Warningf logs a warning.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, severityWarning, format, args...)
}

// Errorf logs an error.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, severityError, format, args...)
}

// VEventf logs an informational message only when verbosity is at or
// above level.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if V(level) {
		output(ctx, severityInfo, format, args...)
	}
}

// Fatalf logs the message and terminates the process.
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, severityFatal, format, args...)
	os.Exit(2)
}

func output(ctx context.Context, sev severity, format string, args ...interface{}) {
	var sb strings.Builder
	sb.WriteByte(severityChar[sev])
	sb.WriteString(time.Now().Format("060102 15:04:05.000000"))
	if tags := logtags.FromContext(ctx); tags != nil {
		sb.WriteString(" [")
		sb.WriteString(tags.String())
		sb.WriteByte(']')
	}
	sb.WriteByte(' ')
	sb.WriteString(redact.Sprintf(format, args...).StripMarkers())
	sb.WriteByte('\n')

	logging.mu.Lock()
	defer logging.mu.Unlock()
	fmt.Fprint(logging.w, sb.String())
}
