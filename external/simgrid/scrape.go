package simgrid

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var raceIDParamRegex = regexp.MustCompile(`race_id=(\d+)`)

// htmlSnapshot is the transient output of the standings page scrape. It is
// consumed once by the merge step and discarded.
type htmlSnapshot struct {
	raceColumns []htmlRaceColumn
	rows        []htmlRow
}

type htmlRaceColumn struct {
	raceID    int64
	raceIndex int
}

type htmlRow struct {
	normalizedName string
	position       *int64
	raceCells      []htmlRaceCell
	dsq            bool
}

type htmlRaceCell struct {
	position *int64
	dns      bool
}

// extractHTMLSnapshot scrapes the per-race finishing positions out of a
// rendered standings page. This is a narrow, site-specific parse used only as
// a degraded-mode fallback, so it fails soft: any structural mismatch returns
// nil rather than an error.
//
// The markers are a fixed external contract with the target site: the results
// table carries both the "table-results" and "table-v2" class tokens, driver
// rows link the driver through an "entrant-name" anchor, the overall rank
// lives in a bold element inside a "result-position" cell, and each race cell
// is a "show_positions" span. Race columns are discovered through
// race_id=<digits> query tokens in the table's hrefs, first occurrence wins.
func extractHTMLSnapshot(pageHTML string) *htmlSnapshot {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	table := doc.Find("table.table-results.table-v2").First()
	if table.Length() == 0 {
		return nil
	}

	columns := extractRaceColumns(table)

	var rows []htmlRow
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		nameAnchor := row.Find("a.entrant-name").First()
		if nameAnchor.Length() == 0 {
			return // header or separator row
		}

		cells := make([]htmlRaceCell, len(columns))
		raceCellTexts := row.Find("span.show_positions")
		for i := range columns {
			if i >= raceCellTexts.Length() {
				break
			}
			position, dns := parseHTMLRacePosition(stripHTML(textOf(raceCellTexts.Eq(i))))
			cells[i] = htmlRaceCell{position: position, dns: dns}
		}

		var position *int64
		if bold := row.Find(".result-position strong").First(); bold.Length() > 0 {
			position = parseHTMLNumeric(stripHTML(textOf(bold)))
		}

		rows = append(rows, htmlRow{
			normalizedName: normalizeName(stripHTML(textOf(nameAnchor))),
			position:       position,
			raceCells:      cells,
			dsq:            row.Find(`span[title="Disqualified"]`).Length() > 0,
		})
	})

	if len(columns) == 0 || len(rows) == 0 {
		return nil
	}
	return &htmlSnapshot{raceColumns: columns, rows: rows}
}

// extractRaceColumns registers one column per distinct race id, in document
// order. A race id repeats inside its column header; only the first
// occurrence defines the column.
func extractRaceColumns(table *goquery.Selection) []htmlRaceColumn {
	tableHTML, err := goquery.OuterHtml(table)
	if err != nil {
		return nil
	}

	seen := make(map[int64]struct{})
	var columns []htmlRaceColumn
	for _, match := range raceIDParamRegex.FindAllStringSubmatch(tableHTML, -1) {
		raceID, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			continue
		}
		if _, dup := seen[raceID]; dup {
			continue
		}
		seen[raceID] = struct{}{}
		columns = append(columns, htmlRaceColumn{raceID: raceID, raceIndex: len(columns)})
	}
	return columns
}

func textOf(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}
