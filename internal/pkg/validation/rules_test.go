package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestIsHashtag(t *testing.T) {
	tests := map[string]bool{
		"golang":    true,
		"#golang":   true,
		"go_lang2":  true,
		"çay":       true,
		"":          false,
		"#":         false,
		"two words": false,
		"tag!":      false,
	}
	for in, want := range tests {
		if got := IsHashtag(in); got != want {
			t.Errorf("IsHashtag(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsCommunityDomain(t *testing.T) {
	tests := map[string]bool{
		"localhost":           true,
		"localhost:8080":      true,
		"Gophers.Example.org": true,
		"a-b.example.org":     true,
		"-bad.example.org":    false,
		"has space.org":       false,
		"http://example.org":  false,
		"":                    false,
	}
	for in, want := range tests {
		if got := IsCommunityDomain(in); got != want {
			t.Errorf("IsCommunityDomain(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRegisterRules(t *testing.T) {
	v := validator.New()
	if err := RegisterRules(v); err != nil {
		t.Fatalf("RegisterRules: %v", err)
	}

	type request struct {
		Tag    string `validate:"hashtag"`
		Domain string `validate:"communitydomain"`
	}
	if err := v.Struct(request{Tag: "#go", Domain: "go.example.org"}); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	err := v.Struct(request{Tag: "no spaces", Domain: "example.org"})
	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrors) != 1 || fieldErrors[0].Tag() != TagHashtag {
		t.Fatalf("expected one hashtag error, got %v", err)
	}
}
