package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		isNil bool
	}{
		{name: "plain text passes through", input: "Senior Engineer", want: "Senior Engineer"},
		{name: "strips markup", input: "<p>Build <b>things</b></p>", want: "Build things"},
		{name: "collapses whitespace", input: "a\n\n  b\t\tc", want: "a b c"},
		{name: "non breaking spaces", input: "New York", want: "New York"},
		{name: "empty input", input: "", isNil: true},
		{name: "whitespace only", input: "  \n\t ", isNil: true},
		{name: "markup only", input: "<div><span></span></div>", isNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanText(tt.input)
			if tt.isNil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, tt.want, *got)
		})
	}
}

func TestCleanTextIdempotent(t *testing.T) {
	first := CleanText("<h1>Backend   Engineer</h1>\n<p>Remote ok</p>")
	require.NotNil(t, first)
	second := CleanText(*first)
	require.NotNil(t, second)
	require.Equal(t, *first, *second)
}

func TestCleanTextNoWhitespaceRuns(t *testing.T) {
	inputs := []string{
		"<div>  a  <br>  b  </div>",
		"x\r\n\r\ny",
		"<ul><li>one</li><li>two</li></ul>",
	}
	for _, in := range inputs {
		got := CleanText(in)
		require.NotNil(t, got)
		require.Equal(t, strings.TrimSpace(*got), *got)
		require.NotContains(t, *got, "  ")
		require.NotContains(t, *got, "\n")
		require.NotContains(t, *got, "\t")
	}
}

func TestNormalizeLocation(t *testing.T) {
	str := func(s string) *string { return &s }

	t.Run("remote with city segments", func(t *testing.T) {
		info := NormalizeLocation(str("Remote · New York, NY"))
		require.NotNil(t, info.IsRemote)
		require.True(t, *info.IsRemote)
		require.NotNil(t, info.RemoteType)
		require.Contains(t, *info.RemoteType, "Remote")
		require.NotNil(t, info.Location)
		require.Equal(t, "New York / NY", *info.Location)
		require.NotNil(t, info.Region)
		require.Equal(t, *info.Location, *info.Region)
	})

	t.Run("nil input yields all nils", func(t *testing.T) {
		info := NormalizeLocation(nil)
		require.Nil(t, info.Location)
		require.Nil(t, info.IsRemote)
		require.Nil(t, info.RemoteType)
		require.Nil(t, info.Region)
	})

	t.Run("empty input yields all nils", func(t *testing.T) {
		info := NormalizeLocation(str("   "))
		require.Nil(t, info.Location)
		require.Nil(t, info.IsRemote)
	})

	t.Run("non remote location", func(t *testing.T) {
		info := NormalizeLocation(str("Berlin, Germany"))
		require.NotNil(t, info.IsRemote)
		require.False(t, *info.IsRemote)
		require.Nil(t, info.RemoteType)
		require.Equal(t, "Berlin / Germany", *info.Location)
	})

	t.Run("only remote segments", func(t *testing.T) {
		info := NormalizeLocation(str("Remote | Fully Remote"))
		require.True(t, *info.IsRemote)
		require.Equal(t, "Remote", *info.RemoteType)
		require.Nil(t, info.Location)
		require.Nil(t, info.Region)
	})

	t.Run("brackets stripped", func(t *testing.T) {
		info := NormalizeLocation(str("(Remote) [Austin]"))
		require.True(t, *info.IsRemote)
		require.Equal(t, "Austin", *info.Location)
	})
}

func TestExtractJobID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "detail url", in: "https://site.example/jobs/detail/998877", want: "998877"},
		{name: "trailing slash", in: "https://site.example/jobs/detail/998877/", want: "998877"},
		{name: "not a url", in: "not a url", want: "not a url"},
		{name: "no path", in: "https://site.example", want: "https://site.example"},
		{name: "query ignored", in: "https://site.example/jobs/abc-123?ref=feed", want: "abc-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractJobID(tt.in))
		})
	}
}
