package markup

import (
	"reflect"
	"testing"
)

func TestExtractMentions(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"single", "hello @bob", []string{"bob"}},
		{"start of text", "@alice hi", []string{"alice"}},
		{"trailing punctuation", "thanks @alice. and @bob!", []string{"alice", "bob"}},
		{"duplicates collapse", "@bob @bob @carol", []string{"bob", "carol"}},
		{"email is not a mention", "mail me at bob@example.com", nil},
		{"fullwidth at sign", "hi ＠danny", []string{"danny"}},
		{"newline separated", "line one\n@erin", []string{"erin"}},
		{"hash stops mention", "@frank#tag", []string{"frank"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractMentions(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ExtractMentions(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestExtractHashtags(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"lowercased", "Loving #Go and #go", []string{"go"}},
		{"mid word hash ignored", "issue#12 #bugs", []string{"bugs"}},
		{"glued tags keep first", "#one#two", []string{"one"}},
		{"unicode letters", "#café time", []string{"café"}},
		{"fullwidth hash", "＃Tokyo", []string{"tokyo"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractHashtags(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ExtractHashtags(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestMentionsInMergesTexts(t *testing.T) {
	got := MentionsIn("hey @bob", "@carol @bob", "")
	want := []string{"bob", "carol"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MentionsIn = %v, want %v", got, want)
	}

	tags := HashtagsIn("#a", "#B #c", "#a")
	if !reflect.DeepEqual(tags, []string{"a", "b", "c"}) {
		t.Fatalf("HashtagsIn = %v", tags)
	}
}
