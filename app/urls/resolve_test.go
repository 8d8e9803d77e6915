package urls

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		base     string
		expected string
	}{
		{"root relative", "/img/x.png", "https://a.com/b/c", "https://a.com/img/x.png"},
		{"relative", "y.png", "https://a.com/b/c", "https://a.com/b/y.png"},
		{"relative with trailing slash", "y.png", "https://a.com/b/c/", "https://a.com/b/c/y.png"},
		{"relative against bare host", "y.png", "https://a.com", "https://a.com/y.png"},
		{"protocol relative", "//cdn.com/z.png", "https://a.com", "https://cdn.com/z.png"},
		{"absolute unchanged", "http://other.com/p.jpg", "https://a.com/b", "http://other.com/p.jpg"},
		{"malformed base", "y.png", "not a url", "y.png"},
		{"broken base", "/y.png", "http://[::1", "/y.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.url, tt.base)
			if got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestHost(t *testing.T) {
	if Host("https://www.example.com/a/b") != "www.example.com" {
		t.Errorf("Expected 'www.example.com', got '%s'", Host("https://www.example.com/a/b"))
	}
}

func TestDecodeEntities(t *testing.T) {
	got := DecodeEntities("https://a.com/i.jpg?w=1&amp;h=2")
	if got != "https://a.com/i.jpg?w=1&h=2" {
		t.Errorf("Expected decoded ampersand, got '%s'", got)
	}
}
