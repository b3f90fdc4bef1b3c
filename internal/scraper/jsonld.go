package scraper

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const jobPostingType = "JobPosting"

// ExtractStructured scans every ld+json block in the document, tolerating
// blocks that fail to parse, and projects the first JobPosting object found
// into a RawJobData. It returns nil when the document carries no posting.
// Structured data is higher precision than selector scraping, so its fields
// take priority during assembly; coverage across pages is inconsistent, hence
// the selector fallback.
func ExtractStructured(doc *goquery.Document) *RawJobData {
	var posting map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		// UseNumber keeps large integers exact instead of rounding them
		// through float64.
		dec := json.NewDecoder(strings.NewReader(sel.Text()))
		dec.UseNumber()
		var payload any
		if err := dec.Decode(&payload); err != nil {
			return true
		}
		for _, obj := range flattenStructured(payload) {
			if isJobPostingType(obj["@type"]) {
				posting = obj
				return false
			}
		}
		return true
	})
	if posting == nil {
		return nil
	}
	return projectPosting(posting)
}

// flattenStructured unwraps arrays and @graph collections into a flat list of
// candidate objects.
func flattenStructured(payload any) []map[string]any {
	var out []map[string]any
	switch v := payload.(type) {
	case map[string]any:
		out = append(out, v)
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				out = append(out, flattenStructured(item)...)
			}
		}
	case []any:
		for _, item := range v {
			out = append(out, flattenStructured(item)...)
		}
	}
	return out
}

// isJobPostingType accepts both a single declared type and a type list.
func isJobPostingType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == jobPostingType
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == jobPostingType {
				return true
			}
		}
	}
	return false
}

func projectPosting(obj map[string]any) *RawJobData {
	raw := &RawJobData{
		Title:           stringField(obj, "title"),
		DescriptionHTML: stringField(obj, "description"),
		DatePosted:      stringField(obj, "datePosted"),
	}
	if org, ok := obj["hiringOrganization"].(map[string]any); ok {
		raw.Company = stringField(org, "name")
	}
	raw.Location = postingLocation(obj["jobLocation"])
	raw.JobType = employmentType(obj["employmentType"])
	raw.Salary = baseSalary(obj["baseSalary"])
	return raw
}

// postingLocation joins the first job location's address parts with ", ".
func postingLocation(v any) *string {
	loc, ok := firstObject(v)
	if !ok {
		return nil
	}
	addr, ok := loc["address"].(map[string]any)
	if !ok {
		return nil
	}
	var parts []string
	for _, key := range []string{"addressLocality", "addressRegion", "addressCountry"} {
		if s := stringField(addr, key); s != nil {
			parts = append(parts, *s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, ", ")
	return &joined
}

// employmentType joins list-valued employment types with ", ".
func employmentType(v any) *string {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return &t
	case []any:
		var parts []string
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return nil
		}
		joined := strings.Join(parts, ", ")
		return &joined
	}
	return nil
}

// baseSalary synthesizes "amount currency unit", omitting missing parts.
func baseSalary(v any) *string {
	sal, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	var parts []string
	if value, ok := sal["value"].(map[string]any); ok {
		if amount := scalarString(value["value"]); amount != nil {
			parts = append(parts, *amount)
		}
		if cur := stringField(sal, "currency"); cur != nil {
			parts = append(parts, *cur)
		}
		if unit := stringField(value, "unitText"); unit != nil {
			parts = append(parts, *unit)
		}
	} else {
		if amount := scalarString(sal["value"]); amount != nil {
			parts = append(parts, *amount)
		}
		if cur := stringField(sal, "currency"); cur != nil {
			parts = append(parts, *cur)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, " ")
	return &joined
}

func firstObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []any:
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok {
				return obj, true
			}
		}
	}
	return nil, false
}

func stringField(obj map[string]any, key string) *string {
	s, ok := obj[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// scalarString renders a JSON string or number as text.
func scalarString(v any) *string {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return &t
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	case json.Number:
		s := t.String()
		return &s
	}
	return nil
}
