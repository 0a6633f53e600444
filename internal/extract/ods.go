package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// maxRepeatedCells caps table:number-columns-repeated, which ODS uses to pad rows to the
// sheet width.
const maxRepeatedCells = 16

var (
	odsTable = regexp.MustCompile(`(?s)<table:table\b[^>]*>.*?</table:table>`)
	odsRow   = regexp.MustCompile(`(?s)<table:table-row\b[^>]*?(?:/>|>.*?</table:table-row>)`)
	odsCell  = regexp.MustCompile(`(?s)<table:(?:covered-)?table-cell\b([^>]*?)(?:/>|>(.*?)</table:(?:covered-)?table-cell>)`)
	odsRepAt = regexp.MustCompile(`table:number-columns-repeated="(\d+)"`)
)

// odsRows returns the rows of the first table of an OpenDocument spreadsheet.
func odsRows(content []byte) ([][]string, error) {
	contentXML, err := readODFContent(content, "ODS")
	if err != nil {
		return nil, err
	}
	table := odsTable.FindString(contentXML)
	var rows [][]string
	for _, rowXML := range odsRow.FindAllString(table, -1) {
		var row []string
		for _, m := range odsCell.FindAllStringSubmatch(rowXML, -1) {
			value := strings.Join(odfParagraphs(m[2]), "\n")
			repeat := 1
			if r := odsRepAt.FindStringSubmatch(m[1]); r != nil {
				repeat, _ = strconv.Atoi(r[1])
			}
			for i := 0; i < repeat && i < maxRepeatedCells; i++ {
				row = append(row, value)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
