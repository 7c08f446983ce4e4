// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import "strings"

const sharedPrefix = "$share/"

// IsTopicFilterMatch checks if a topic name matches a topic filter.
func IsTopicFilterMatch(topicFilter, topicName string) bool {
	if tf, ok := strings.CutPrefix(topicFilter, sharedPrefix); ok {
		idx := strings.Index(tf, "/")
		if idx == -1 {
			return false
		}
		topicFilter = tf[idx+1:]
	}

	filters := strings.Split(topicFilter, "/")
	names := strings.Split(topicName, "/")

	for i, filter := range filters {
		switch {
		case filter == "#":
			// Multi-level wildcard must be last; it also matches the parent.
			return i == len(filters)-1
		case filter == "+":
			if i >= len(names) {
				return false
			}
		case i >= len(names) || filter != names[i]:
			return false
		}
	}
	return len(filters) == len(names)
}

// IsValidTopic reports whether name is a valid topic name for a publish.
func IsValidTopic(name string) bool {
	return name != "" && !strings.ContainsAny(name, "+#\x00")
}

// IsValidFilter reports whether filter is a valid subscription topic filter.
func IsValidFilter(filter string) bool {
	if tf, ok := strings.CutPrefix(filter, sharedPrefix); ok {
		group, rest, found := strings.Cut(tf, "/")
		if !found || group == "" || strings.ContainsAny(group, "+#") {
			return false
		}
		filter = rest
	}
	if filter == "" || strings.Contains(filter, "\x00") {
		return false
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case level == "#" && i != len(levels)-1:
			return false
		case level != "+" && level != "#" && strings.ContainsAny(level, "+#"):
			return false
		}
	}
	return true
}
