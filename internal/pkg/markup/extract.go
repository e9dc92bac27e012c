// Package markup extracts @mentions and #hashtags from user supplied text.
// It does not render anything; rendering and sanitising happen elsewhere.
package markup

import (
	"regexp"
	"strings"
)

var (
	hashtagPattern = regexp.MustCompile(`(?:^|\s)[＃#]([\p{L}\p{N}_]+)`)
	mentionPattern = regexp.MustCompile(`(?:^|\s)[＠@]([^\s#<>!.?\[\]|{}]+)`)
)

// ExtractMentions returns the distinct usernames mentioned in text, in order of
// first appearance.
func ExtractMentions(text string) []string {
	return extract(text, mentionPattern, false)
}

// ExtractHashtags returns the distinct lowercased hashtags found in text, in
// order of first appearance. The leading "#" is not included.
func ExtractHashtags(text string) []string {
	return extract(text, hashtagPattern, true)
}

// MentionsIn is ExtractMentions over several texts with a single set.
func MentionsIn(texts ...string) []string {
	return extractAll(texts, mentionPattern, false)
}

// HashtagsIn is ExtractHashtags over several texts with a single set.
func HashtagsIn(texts ...string) []string {
	return extractAll(texts, hashtagPattern, true)
}

func extract(text string, pattern *regexp.Regexp, lower bool) []string {
	return extractAll([]string{text}, pattern, lower)
}

func extractAll(texts []string, pattern *regexp.Regexp, lower bool) []string {
	var (
		result []string
		seen   = make(map[string]struct{})
	)
	for _, text := range texts {
		for _, token := range strings.Fields(text) {
			for _, match := range pattern.FindAllStringSubmatch(token, -1) {
				value := match[1]
				if lower {
					value = strings.ToLower(value)
				}
				if _, ok := seen[value]; ok {
					continue
				}
				seen[value] = struct{}{}
				result = append(result, value)
			}
		}
	}
	return result
}
