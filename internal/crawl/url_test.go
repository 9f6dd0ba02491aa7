package crawl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare domain gets scheme", in: "example.com", want: "http://example.com"},
		{name: "path preserved", in: "example.com/a", want: "http://example.com/a"},
		{name: "trailing slash stripped", in: "http://example.com/", want: "http://example.com"},
		{name: "fragment cleared", in: "http://example.com/a#section", want: "http://example.com/a"},
		{name: "uppercase scheme lowered", in: "HTTP://example.com/a", want: "http://example.com/a"},
		{name: "https kept", in: "https://example.com/a", want: "https://example.com/a"},
		{name: "query preserved", in: "http://example.com/a?x=1", want: "http://example.com/a?x=1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, NormalizeURL(tc.in))
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"example.com",
		"example.com/",
		"http://example.com/a#frag",
		"HTTPS://Example.com/b/",
		"http://example.com/a?x=1&y=2",
		"http://%zz",      // malformed escape
		"http://[broken",  // malformed host
		"not a url at all",
		"",
	}
	for _, in := range inputs {
		once := NormalizeURL(in)
		require.Equal(t, once, NormalizeURL(once), "normalize must be idempotent for %q", in)
	}
}

func TestNormalizeURLMalformedReturnsInput(t *testing.T) {
	t.Parallel()

	require.Equal(t, "http://[broken", NormalizeURL("http://[broken"))
}

func TestSameHost(t *testing.T) {
	t.Parallel()

	require.True(t, SameHost("http://example.com/a", "http://EXAMPLE.com/b"))
	require.False(t, SameHost("http://example.com/a", "http://other.com/a"))
}
