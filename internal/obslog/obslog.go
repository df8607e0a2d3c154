/*
 * MIT License
 *
 * Copyright (c) 2025 bytefold contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package obslog is the structured-logging facade every bytefold subsystem
// logs through. It wraps one shared logrus.Logger behind leveled package
// functions that tag each line with a component field, without carrying
// logrus's full hook/formatter surface.
package obslog

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu   sync.RWMutex
	base = logrus.New()
)

// SetOutputLogger lets a host application redirect bytefold's structured
// logs into its own logrus instance instead of the package default.
func SetOutputLogger(l *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
}

func entry(component string) *logrus.Entry {
	mu.RLock()
	defer mu.RUnlock()
	return base.WithField("component", component)
}

// Debug logs a low-level trace fact (state transitions, byte counts).
func Debug(component, msg string, fields logrus.Fields) {
	entry(component).WithFields(fields).Debug(msg)
}

// Warn logs a recoverable anomaly (a compat-profile downgrade, a retried
// suspension point).
func Warn(component, msg string, fields logrus.Fields) {
	entry(component).WithFields(fields).Warn(msg)
}

// Error logs a failure that is about to be returned to the caller as a
// typed error; the log line carries the same context map for correlation.
func Error(component, msg string, fields logrus.Fields) {
	entry(component).WithFields(fields).Error(msg)
}
