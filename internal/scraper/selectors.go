package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// A lookup tries to pull one field out of the document. It returns nil when
// nothing matched; an empty-text match counts as nothing.
type lookup func(doc *goquery.Document) *string

// firstOf short-circuits an ordered list of lookups: first success wins.
func firstOf(lookups ...lookup) lookup {
	return func(doc *goquery.Document) *string {
		for _, fn := range lookups {
			if v := fn(doc); v != nil {
				return v
			}
		}
		return nil
	}
}

// text returns the cleaned text of the first element matching sel.
func text(sel string) lookup {
	return func(doc *goquery.Document) *string {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			return nil
		}
		return CleanText(node.Text())
	}
}

// innerHTML returns the inner markup of the first element matching sel.
func innerHTML(sel string) lookup {
	return func(doc *goquery.Document) *string {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			return nil
		}
		markup, err := node.Html()
		if err != nil || strings.TrimSpace(markup) == "" {
			return nil
		}
		return &markup
	}
}

// attrOrText prefers a machine-readable attribute on the first match, falling
// back to the element's text.
func attrOrText(sel, attr string) lookup {
	return func(doc *goquery.Document) *string {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			return nil
		}
		if v, ok := node.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return &v
		}
		return CleanText(node.Text())
	}
}

// Selector chains are inherently fragile as class names drift across board
// redesigns; the contract is best-effort fill, never blocking extraction on a
// missing field.
var (
	titleLookup = firstOf(
		text("h1"),
		text(".job-title"),
		text(".posting-title"),
		text(`[data-testid="job-title"]`),
		text(".job-header h2"),
	)
	companyLookup = firstOf(
		text(".company-name"),
		text(".company"),
		text(".employer"),
		text(`[data-testid="company-name"]`),
		text(".job-header .org"),
	)
	descriptionLookup = firstOf(
		innerHTML(".job-description"),
		innerHTML("#job-description"),
		innerHTML(`[data-testid="job-description"]`),
		innerHTML(".description"),
		innerHTML(".posting-body"),
	)
	locationLookup = firstOf(
		text(".job-location"),
		text(".location"),
		text(`[data-testid="job-location"]`),
		text(".job-meta .place"),
	)
	datePostedLookup = firstOf(
		attrOrText("time[datetime]", "datetime"),
		attrOrText("time", "datetime"),
		text(".posted-date"),
	)
	jobTypeLookup = firstOf(
		text(".employment-type"),
		text(".job-type"),
		text(`[data-testid="employment-type"]`),
	)
	salaryLookup = firstOf(
		text(".salary"),
		text(".compensation"),
		text(`[data-testid="salary"]`),
		text(".job-meta .pay"),
	)
)

// FillFromSelectors attempts the prioritized selector groups for every field
// the structured extractor left empty. First match wins per field.
func FillFromSelectors(doc *goquery.Document, raw *RawJobData) {
	if raw.Title == nil {
		raw.Title = titleLookup(doc)
	}
	if raw.Company == nil {
		raw.Company = companyLookup(doc)
	}
	if raw.DescriptionHTML == nil {
		raw.DescriptionHTML = descriptionLookup(doc)
	}
	if raw.Location == nil {
		raw.Location = locationLookup(doc)
	}
	if raw.DatePosted == nil {
		raw.DatePosted = datePostedLookup(doc)
	}
	if raw.JobType == nil {
		raw.JobType = jobTypeLookup(doc)
	}
	if raw.Salary == nil {
		raw.Salary = salaryLookup(doc)
	}
}
