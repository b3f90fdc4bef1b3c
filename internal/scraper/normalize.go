package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// locationDelimiters are the characters a raw location string is split on.
const locationDelimiters = "·•|/,-"

// LocationInfo is the decomposition of a raw location string.
type LocationInfo struct {
	Location   *string
	IsRemote   *bool
	RemoteType *string
	Region     *string
}

// CleanText strips markup from an HTML fragment, collapses whitespace runs to
// single spaces, and trims. It returns nil for empty or absent input and is
// idempotent over already-clean text.
func CleanText(fragment string) *string {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}
	text := fragment
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
		text = doc.Text()
	}
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	return &text
}

// NormalizeLocation decomposes a raw location string into a canonical
// location, a remote flag, and the remote descriptor. Segments containing
// "remote" set the flag and, for the first such segment only, the descriptor;
// all other segments join the location in encounter order. Malformed input
// degrades to nils, never a failure.
func NormalizeLocation(raw *string) LocationInfo {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return LocationInfo{}
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', '[', ']', '{', '}':
			return -1
		}
		return r
	}, *raw)

	segments := strings.FieldsFunc(cleaned, func(r rune) bool {
		return strings.ContainsRune(locationDelimiters, r)
	})

	var (
		parts      []string
		isRemote   bool
		remoteType *string
	)
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if strings.Contains(strings.ToLower(seg), "remote") {
			isRemote = true
			if remoteType == nil {
				s := seg
				remoteType = &s
			}
			continue
		}
		parts = append(parts, seg)
	}

	info := LocationInfo{
		IsRemote:   &isRemote,
		RemoteType: remoteType,
	}
	if len(parts) > 0 {
		joined := strings.Join(parts, " / ")
		info.Location = &joined
		region := joined
		info.Region = &region
	}
	return info
}

// ExtractJobID returns the last non-empty path segment of the URL. Extraction
// is best-effort: inputs that cannot be parsed, or that carry no path, come
// back unchanged rather than failing.
func ExtractJobID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if seg := strings.TrimSpace(segments[i]); seg != "" {
			return seg
		}
	}
	return rawURL
}
