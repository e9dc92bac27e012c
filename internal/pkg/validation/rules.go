// Package validation holds the custom validator rules used by request DTOs.
package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// Hashtag: letters, digits and underscores with an optional leading "#"
	HashtagPattern = `^[＃#]?[\p{L}\p{N}_]+$`

	// Community domain: a lowercase host name with an optional port
	DomainPattern = `^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)*(:[0-9]{1,5})?$`

	HashtagMaxLength = 100
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Hashtag *regexp.Regexp
	Domain  *regexp.Regexp
}{
	Hashtag: regexp.MustCompile(HashtagPattern),
	Domain:  regexp.MustCompile(DomainPattern),
}

// Rule tags registered by RegisterRules
const (
	TagHashtag = "hashtag"
	TagDomain  = "communitydomain"
)

// IsHashtag reports whether s names a followable hashtag
func IsHashtag(s string) bool {
	return len(s) <= HashtagMaxLength && CompiledPatterns.Hashtag.MatchString(s)
}

// IsCommunityDomain reports whether s can serve as a community domain.
// Upper case is accepted; domains are stored lowercased.
func IsCommunityDomain(s string) bool {
	return CompiledPatterns.Domain.MatchString(strings.ToLower(strings.TrimSpace(s)))
}

// RegisterRules adds the custom rules to v
func RegisterRules(v *validator.Validate) error {
	if err := v.RegisterValidation(TagHashtag, func(fl validator.FieldLevel) bool {
		return IsHashtag(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation(TagDomain, func(fl validator.FieldLevel) bool {
		return IsCommunityDomain(fl.Field().String())
	})
}
