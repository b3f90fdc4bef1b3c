package scraper

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

// AssembleRecord merges structured and unstructured extraction for one detail
// page into a complete JobRecord. Structured values are the base; selectors
// fill only what is still empty. description_text is always derived from
// description_html, and the location quartet comes exclusively from
// NormalizeLocation. The function cannot fail: an unparseable body yields a
// best-effort record with id and url populated and all content fields nil.
func AssembleRecord(pageURL string, body []byte) JobRecord {
	record := StubRecord(pageURL)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return record
	}

	raw := ExtractStructured(doc)
	if raw == nil {
		raw = &RawJobData{}
	}
	FillFromSelectors(doc, raw)

	record.Title = raw.Title
	record.Company = raw.Company
	record.Salary = raw.Salary
	record.JobType = raw.JobType
	record.DatePosted = raw.DatePosted
	record.DescriptionHTML = raw.DescriptionHTML
	if raw.DescriptionHTML != nil {
		record.DescriptionText = CleanText(*raw.DescriptionHTML)
	}

	loc := NormalizeLocation(raw.Location)
	record.Location = loc.Location
	record.IsRemote = loc.IsRemote
	record.RemoteType = loc.RemoteType
	record.Region = loc.Region

	return record
}

// StubRecord builds the minimal record emitted when detail extraction
// ultimately fails: id and url populated, every content field nil.
func StubRecord(pageURL string) JobRecord {
	return JobRecord{
		JobID: ExtractJobID(pageURL),
		URL:   pageURL,
	}
}
