package scraper

import (
	"bytes"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"foodpillory/internal/facility"
	"foodpillory/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	listDocument   = "list page"
	detailDocument = "detail page"
)

// ListRow holds the summary fields of one row of a list page.
type ListRow struct {
	Id        int
	Category  string
	Name      string
	Address   string
	Published string
	// distinct offenses joined with facility.OffenseSeparator
	Offenses string
}

// Detail holds the fields of a detail page, dates are still raw text.
type Detail struct {
	TaxId           sql.NullString
	ClosureStatus   string
	Closed          string
	Reopened        sql.NullString
	ReferenceNumber string
}

// Extractor turns fetched documents into fields. It does no I/O.
type Extractor interface {
	ListRows(body []byte) ([]ListRow, error)
	PageCount(body []byte) (int, error)
	Detail(body []byte) (Detail, error)
}

// SiteSchema locates fields by the element ids and classes the inspection
// site uses. Every assumption about the site's markup lives here.
type SiteSchema struct {
	Rows          string
	LastPageLink  string
	PagerLinks    string
	TaxId         string
	ClosureStatus string
	Closed        string
	Reopened      string
	Reference     string
}

var DefaultSchema = SiteSchema{
	Rows:          "table tr",
	LastPageLink:  "a.last",
	PagerLinks:    "div.pager a",
	TaxId:         "span#MainContent_lblWsDetailIC",
	ClosureStatus: "a#MainContent_lnkWsDetailCloseState",
	Closed:        "span#MainContent_lblWsDetailCloseDate",
	Reopened:      "span#MainContent_lblWsDetailReopenDate",
	Reference:     "span#MainContent_lblWsDetailReferenceNumber",
}

func parseDocument(document string, body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return nil, &ParseError{Document: document, Element: "html", Err: err}
	}
	return doc, nil
}

// parseRowId reads the id out of an inline handler such as
// "location.href='WDetail.aspx?id=1234&lang=cs'".
func parseRowId(handler string) (int, error) {
	start := strings.Index(handler, "id=")
	if start < 0 {
		return 0, fmt.Errorf("no id= in %q", handler)
	}
	rest := handler[start+len("id="):]
	if end := strings.Index(rest, "&"); end >= 0 {
		rest = rest[:end]
	}
	id, err := strconv.Atoi(strings.Trim(rest, "' \""))
	if err != nil {
		return 0, err
	}
	if id < 0 {
		return 0, fmt.Errorf("negative id %d", id)
	}
	return id, nil
}

func distinctOffenses(texts []string) string {
	seen := map[string]bool{}
	var offenses []string
	for _, t := range texts {
		offense := facility.CleanOffense(htmlutil.Clean(t))
		if offense == "" || seen[offense] {
			continue
		}
		seen[offense] = true
		offenses = append(offenses, offense)
	}
	return facility.JoinOffenses(offenses)
}

func (s SiteSchema) listRow(index int, tr *goquery.Selection) (ListRow, error) {
	missing := func(element string) error {
		return &ParseError{Document: listDocument, Element: fmt.Sprintf("row %d: %s", index, element)}
	}

	handler, ok := tr.Attr("onclick")
	if !ok {
		return ListRow{}, missing("onclick attribute")
	}
	id, err := parseRowId(handler)
	if err != nil {
		return ListRow{}, &ParseError{
			Document: listDocument,
			Element:  fmt.Sprintf("row %d: id", index),
			Err:      err,
		}
	}

	cells := tr.ChildrenFiltered("td")
	if cells.Length() < 5 {
		return ListRow{}, missing(fmt.Sprintf("5 cells, found %d", cells.Length()))
	}

	category, ok := cells.Eq(0).ChildrenFiltered("img").First().Attr("title")
	if !ok {
		return ListRow{}, missing("category image title")
	}
	name, ok := htmlutil.FirstOwnText(cells.Eq(1).ChildrenFiltered("span"))
	if !ok {
		return ListRow{}, missing("name")
	}
	address, ok := htmlutil.FirstOwnText(cells.Eq(2).ChildrenFiltered("span"))
	if !ok {
		return ListRow{}, missing("address")
	}
	published, ok := htmlutil.FirstOwnText(cells.Eq(3))
	if !ok {
		return ListRow{}, missing("publication date")
	}

	return ListRow{
		Id:        id,
		Category:  htmlutil.Clean(category),
		Name:      htmlutil.Clean(name),
		Address:   htmlutil.Clean(address),
		Published: htmlutil.Clean(published),
		Offenses:  distinctOffenses(htmlutil.OwnTexts(cells.Eq(4).ChildrenFiltered("span"))),
	}, nil
}

const pageSummaryLength = 80

// pageSummary is the text of the document's title, or of its body when it
// has none. It tells an error page apart from a changed layout.
func pageSummary(doc *goquery.Document) string {
	nodes := doc.Find("title").Nodes
	if len(nodes) == 0 {
		nodes = doc.Find("body").Nodes
	}
	if len(nodes) == 0 {
		return ""
	}
	text := []rune(htmlutil.Clean(htmlutil.GetText(nodes[0])))
	if len(text) > pageSummaryLength {
		return string(text[:pageSummaryLength]) + "..."
	}
	return string(text)
}

func (s SiteSchema) ListRows(body []byte) ([]ListRow, error) {
	doc, err := parseDocument(listDocument, body)
	if err != nil {
		return nil, err
	}

	trs := doc.Find(s.Rows)
	if trs.Length() == 0 {
		return nil, &ParseError{Document: listDocument, Element: "list table", Page: pageSummary(doc)}
	}

	// the first row is the table header
	var rows []ListRow
	for i := 1; i < trs.Length(); i++ {
		row, err := s.listRow(i, trs.Eq(i))
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func lastPageFromHref(href string) (int, error) {
	var page string
	link, err := url.Parse(href)
	if err == nil {
		page = link.Query().Get("page")
	}
	if page == "" {
		idx := strings.LastIndex(href, "page=")
		if idx < 0 {
			return 0, fmt.Errorf("no page parameter in %q", href)
		}
		page = href[idx+len("page="):]
		if end := strings.IndexAny(page, "&#"); end >= 0 {
			page = page[:end]
		}
	}
	return strconv.Atoi(page)
}

// PageCount reads the last page index from the "last" link, falling back to
// the number of links in the pager when there is none.
func (s SiteSchema) PageCount(body []byte) (int, error) {
	doc, err := parseDocument(listDocument, body)
	if err != nil {
		return 0, err
	}

	var count int
	last := doc.Find(s.LastPageLink).First()
	if last.Length() > 0 {
		href, _ := last.Attr("href")
		count, err = lastPageFromHref(href)
		if err != nil {
			return 0, &ParseError{Document: listDocument, Element: "last page link", Err: err}
		}
	} else {
		doc.Find(s.PagerLinks).Each(func(_ int, a *goquery.Selection) {
			if htmlutil.Clean(a.Text()) != "" {
				count++
			}
		})
	}

	if count <= 0 {
		return 0, &ParseError{Document: listDocument, Element: "page count", Page: pageSummary(doc)}
	}
	return count, nil
}

func findText(doc *goquery.Document, selector string) (string, bool) {
	text, ok := htmlutil.FirstOwnText(doc.Find(selector).First())
	if !ok {
		return "", false
	}
	text = htmlutil.Clean(text)
	return text, text != ""
}

func findOptional(doc *goquery.Document, selector string) sql.NullString {
	text, ok := findText(doc, selector)
	return sql.NullString{String: text, Valid: ok}
}

func (s SiteSchema) Detail(body []byte) (Detail, error) {
	doc, err := parseDocument(detailDocument, body)
	if err != nil {
		return Detail{}, err
	}

	missing := func(element string) error {
		return &ParseError{Document: detailDocument, Element: element, Page: pageSummary(doc)}
	}

	var detail Detail
	var ok bool
	if detail.ClosureStatus, ok = findText(doc, s.ClosureStatus); !ok {
		return Detail{}, missing("closure status")
	}
	if detail.Closed, ok = findText(doc, s.Closed); !ok {
		return Detail{}, missing("closure date")
	}
	if detail.ReferenceNumber, ok = findText(doc, s.Reference); !ok {
		return Detail{}, missing("reference number")
	}

	detail.TaxId = findOptional(doc, s.TaxId)
	detail.Reopened = findOptional(doc, s.Reopened)
	return detail, nil
}
