package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFillFromSelectors(t *testing.T) {
	html := `
<html><body>
  <h1>Frontend Engineer</h1>
  <div class="company-name">Widgets Inc</div>
  <div class="job-location">Remote · Lisbon, Portugal</div>
  <time datetime="2024-05-10">May 10</time>
  <span class="job-type">Full-time</span>
  <span class="salary">€60k–€75k</span>
  <div class="job-description"><p>Ship UI</p></div>
</body></html>`

	raw := &RawJobData{}
	FillFromSelectors(docFromHTML(t, html), raw)

	require.Equal(t, "Frontend Engineer", *raw.Title)
	require.Equal(t, "Widgets Inc", *raw.Company)
	require.Equal(t, "Remote · Lisbon, Portugal", *raw.Location)
	require.Equal(t, "2024-05-10", *raw.DatePosted)
	require.Equal(t, "Full-time", *raw.JobType)
	require.Equal(t, "€60k–€75k", *raw.Salary)
	require.Contains(t, *raw.DescriptionHTML, "<p>Ship UI</p>")
}

func TestFillFromSelectorsKeepsExisting(t *testing.T) {
	html := `<h1>B</h1>`
	title := "A"
	raw := &RawJobData{Title: &title}
	FillFromSelectors(docFromHTML(t, html), raw)
	require.Equal(t, "A", *raw.Title)
}

func TestFillFromSelectorsEmptyTextIsNotFound(t *testing.T) {
	html := `<h1>   </h1><div class="job-title">Fallback Title</div>`
	raw := &RawJobData{}
	FillFromSelectors(docFromHTML(t, html), raw)
	require.NotNil(t, raw.Title)
	require.Equal(t, "Fallback Title", *raw.Title)
}

func TestFillFromSelectorsFirstMatchWins(t *testing.T) {
	html := `<div class="location">First</div><div class="location">Second</div>`
	raw := &RawJobData{}
	FillFromSelectors(docFromHTML(t, html), raw)
	require.Equal(t, "First", *raw.Location)
}

func TestFillFromSelectorsTimeTextFallback(t *testing.T) {
	html := `<time>3 days ago</time>`
	raw := &RawJobData{}
	FillFromSelectors(docFromHTML(t, html), raw)
	require.Equal(t, "3 days ago", *raw.DatePosted)
}
