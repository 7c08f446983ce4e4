// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package topic

import (
	"maps"
	"regexp"
	"strings"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
)

type (
	// Pattern applies tokens to a named topic pattern such as
	// "pedometer/{deviceId}/samples".
	Pattern struct {
		name    string
		pattern string
		tokens  map[string]string
	}

	// Filter is a subscription filter that can parse out its named tokens.
	Filter struct {
		filter string
		regex  *regexp.Regexp
		names  []string
		tokens map[string]string
	}
)

const (
	topicLabel = `[^ "+#{}/]+`
	topicToken = `\{` + topicLabel + `\}`
	topicLevel = `(` + topicLabel + `|` + topicToken + `)`
	topicMatch = `(` + topicLabel + `)`
)

var (
	matchLabel = regexp.MustCompile(`^` + topicLabel + `$`)
	matchToken = regexp.MustCompile(topicToken)
	matchTopic = regexp.MustCompile(
		`^` + topicLabel + `(/` + topicLabel + `)*$`,
	)
	matchPattern = regexp.MustCompile(
		`^` + topicLevel + `(/` + topicLevel + `)*$`,
	)
)

// NewPattern validates a topic pattern and resolves the given tokens into it.
func NewPattern(
	name, pattern string,
	tokens map[string]string,
) (*Pattern, error) {
	if !matchPattern.MatchString(pattern) {
		return nil, &errors.Error{
			Message:       "invalid topic pattern",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  name,
			PropertyValue: pattern,
		}
	}

	if err := validateTokens(errors.ConfigurationInvalid, tokens); err != nil {
		return nil, err
	}
	for token, value := range tokens {
		pattern = strings.ReplaceAll(pattern, `{`+token+`}`, value)
	}

	return &Pattern{name, pattern, tokens}, nil
}

// Topic fully resolves the pattern for publishing.
func (p *Pattern) Topic(tokens map[string]string) (string, error) {
	topic := p.pattern

	if err := validateTokens(errors.InvalidInput, tokens); err != nil {
		return "", err
	}
	for token, value := range tokens {
		topic = strings.ReplaceAll(topic, `{`+token+`}`, value)
	}

	if !Valid(topic) {
		if missing := matchToken.FindString(topic); missing != "" {
			return "", &errors.Error{
				Message:      "unresolved topic token",
				Kind:         errors.InvalidInput,
				PropertyName: missing[1 : len(missing)-1],
			}
		}
		return "", &errors.Error{
			Message:       "invalid topic",
			Kind:          errors.InvalidInput,
			PropertyName:  p.name,
			PropertyValue: topic,
		}
	}
	return topic, nil
}

// Filter generates a subscription filter. Unresolved tokens become "+"
// wildcards.
func (p *Pattern) Filter() (*Filter, error) {
	names := matchToken.FindAllString(p.pattern, -1)
	for i, token := range names {
		names[i] = token[1 : len(token)-1]
	}

	escaped := regexp.QuoteMeta(p.pattern)
	for _, token := range names {
		escaped = strings.ReplaceAll(escaped, `\{`+token+`\}`, topicMatch)
	}
	regex, err := regexp.Compile(`^` + escaped + `$`)
	if err != nil {
		return nil, err
	}

	filter := matchToken.ReplaceAllString(p.pattern, `+`)
	return &Filter{filter, regex, names, p.tokens}, nil
}

// Filter provides the MQTT topic filter string.
func (f *Filter) Filter() string {
	return f.filter
}

// Tokens indicates whether the topic matched and resolves its topic tokens.
func (f *Filter) Tokens(topic string) (map[string]string, bool) {
	match := f.regex.FindStringSubmatch(topic)
	if match == nil {
		return nil, false
	}

	tokens := make(map[string]string, len(f.names)+len(f.tokens))
	for i, val := range match[1:] {
		tokens[f.names[i]] = val
	}
	maps.Copy(tokens, f.tokens)
	return tokens, true
}

// Valid returns whether the string is a fully-resolved topic.
func Valid(topic string) bool {
	return matchTopic.MatchString(topic)
}

func validateTokens(kind errors.Kind, tokens map[string]string) error {
	for k, v := range tokens {
		if !matchLabel.MatchString(k) || !matchLabel.MatchString(v) {
			return &errors.Error{
				Message:       "invalid topic token",
				Kind:          kind,
				PropertyName:  k,
				PropertyValue: v,
			}
		}
	}
	return nil
}
