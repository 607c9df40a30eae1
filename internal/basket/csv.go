package basket

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

type csvSource struct {
	r *csv.Reader
}

func (s *csvSource) Next() ([]string, error) { return s.r.Read() }

// openCSV opens path for row-wise reading. The caller closes the returned
// file.
func openCSV(path string, delim rune) (rowSource, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return newCSVSource(f, delim), f, nil
}

func newCSVSource(r io.Reader, delim rune) *csvSource {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = delim != '\t'
	cr.LazyQuotes = true
	cr.Comma = delim
	return &csvSource{r: cr}
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	// Filename heuristic only, so the file is read once.
	return ','
}

// ParseDelimiter maps a flag value to a CSV delimiter; "" means auto.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported delimiter: %s", s)
}
