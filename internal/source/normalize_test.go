package source

import "testing"

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"strips utm params", "https://a.com/1?utm_source=x&utm_medium=y", "https://a.com/1"},
		{"strips single utm", "https://a.com/1?utm=x", "https://a.com/1"},
		{"keeps content params", "https://a.com/story?id=42&utm_campaign=z", "https://a.com/story?id=42"},
		{"trailing slash", "https://a.com/story/", "https://a.com/story"},
		{"lowercases host", "https://WWW.Example.COM/Story", "https://www.example.com/Story"},
		{"drops fragment", "https://a.com/1#section", "https://a.com/1"},
		{"default https port", "https://a.com:443/1", "https://a.com/1"},
		{"default http port", "http://a.com:80/1", "http://a.com/1"},
		{"strips gclid", "https://a.com/1?gclid=abc", "https://a.com/1"},
		{"whitespace", "  https://a.com/1  ", "https://a.com/1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeURL(tc.in); got != tc.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeURL_SameStoryTwoProviders(t *testing.T) {
	a := NormalizeURL("https://a.com/1?utm=x")
	b := NormalizeURL("https://a.com/1")
	if a != b {
		t.Errorf("expected %q == %q", a, b)
	}
}
