// Copyright 2026 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package aapt2

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// res/values/strings.xml:12:5: error: resource string/foo not found.
	locatedMessage = regexp.MustCompile(`^(.+?):(\d+)(?::(\d+))?: (error|warn|warning|note): (.*)$`)
	// AndroidManifest.xml: error: no package attribute.
	fileMessage = regexp.MustCompile(`^(\S+?): (error|warn|warning|note): (.*)$`)
	// error: failed linking references.
	bareMessage = regexp.MustCompile(`^(error|warn|warning|note): (.*)$`)
)

const aaptPrefix = "AAPT: "

func severity(s string) string {
	if s == "warn" {
		return "warning"
	}
	return s
}

// ParseOutput extracts diagnostics from aapt2 output. Indented lines continue the preceding
// message; any other line is ignored.
func ParseOutput(lines []string) []Message {
	var messages []Message
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimPrefix(strings.TrimSpace(line), aaptPrefix)
		if trimmed == "" {
			continue
		}

		if m := locatedMessage.FindStringSubmatch(trimmed); m != nil {
			msg := Message{Severity: severity(m[4]), File: m[1], Text: m[5]}
			msg.Line, _ = strconv.Atoi(m[2])
			if m[3] != "" {
				msg.Column, _ = strconv.Atoi(m[3])
			}
			messages = append(messages, msg)
		} else if m := fileMessage.FindStringSubmatch(trimmed); m != nil {
			messages = append(messages, Message{Severity: severity(m[2]), File: m[1], Text: m[3]})
		} else if m := bareMessage.FindStringSubmatch(trimmed); m != nil {
			messages = append(messages, Message{Severity: severity(m[1]), Text: m[2]})
		} else if len(messages) > 0 && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) {
			last := &messages[len(messages)-1]
			last.Text += "\n" + trimmed
		}
	}
	return messages
}
