package scraper

import "fmt"

// NetworkError means a request failed after its retry budget was spent or
// the server kept answering with an error status. It aborts the run.
type NetworkError struct {
	Url    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.Url, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.Url, e.Status)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError means a required element is missing from a fetched document,
// usually because the site changed or returned an error page.
type ParseError struct {
	Document string
	Element  string
	// title or leading text of the document, if any
	Page string
	Err  error
}

func (e *ParseError) Error() string {
	var msg string
	if e.Err != nil {
		msg = fmt.Sprintf("parse %s: %s: %v", e.Document, e.Element, e.Err)
	} else {
		msg = fmt.Sprintf("parse %s: missing %s", e.Document, e.Element)
	}
	if e.Page != "" {
		msg += fmt.Sprintf(" (page reads %q)", e.Page)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DateFormatError means a required date is not in the "DD. MM. YYYY" form.
type DateFormatError struct {
	Field string
	Value string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("%s: %q is not a date in the form DD. MM. YYYY", e.Field, e.Value)
}
