package basket

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// xlsxSource streams rows of one worksheet. Cells are returned as their
// displayed string value; shared strings are resolved.
type xlsxSource struct {
	dec    *xml.Decoder
	shared []string
}

type workbookSheet struct {
	name    string
	sheetID int
	relID   string
}

// openXLSX loads the workbook at path and selects a sheet by name, or by
// 1-based index when name is empty.
func openXLSX(p, sheet string, index int) (*xlsxSource, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	sheets := workbookSheets(zipEntry(zr, "xl/workbook.xml"))
	rels := workbookRels(zipEntry(zr, "xl/_rels/workbook.xml.rels"))

	target := ""
	if sheet != "" {
		names := make([]string, 0, len(sheets))
		for _, s := range sheets {
			names = append(names, s.name)
			if strings.EqualFold(s.name, sheet) {
				target = sheetPath(rels[s.relID])
			}
		}
		if target == "" {
			return nil, fmt.Errorf("sheet %q not found in %s (available: %s)", sheet, filepath.Base(p), strings.Join(names, ", "))
		}
	} else {
		if index <= 0 {
			index = 1
		}
		for _, s := range sheets {
			if s.sheetID == index && rels[s.relID] != "" {
				target = sheetPath(rels[s.relID])
				break
			}
		}
		if target == "" {
			target = fmt.Sprintf("xl/worksheets/sheet%d.xml", index)
		}
	}
	data := zipEntry(zr, target)
	if data == nil {
		return nil, fmt.Errorf("worksheet %s missing from %s", target, filepath.Base(p))
	}
	return &xlsxSource{
		dec:    xml.NewDecoder(bytes.NewReader(data)),
		shared: sharedStrings(zipEntry(zr, "xl/sharedStrings.xml")),
	}, nil
}

// Next returns the next <row> as a dense slice indexed by column.
func (s *xlsxSource) Next() ([]string, error) {
	var row []string
	inRow := false
	for {
		tok, err := s.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("parse worksheet: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch {
			case el.Name.Local == "row":
				inRow = true
				row = row[:0]
			case inRow && el.Name.Local == "c":
				var ref, typ string
				for _, a := range el.Attr {
					switch a.Name.Local {
					case "r":
						ref = a.Value
					case "t":
						typ = a.Value
					}
				}
				col := columnIndex(ref)
				if col < 0 {
					col = len(row)
				}
				val, err := s.cellValue(typ)
				if err != nil {
					return nil, err
				}
				for len(row) <= col {
					row = append(row, "")
				}
				row[col] = val
			}
		case xml.EndElement:
			if el.Name.Local == "row" && inRow {
				return row, nil
			}
		}
	}
}

// cellValue reads up to the closing </c> and returns its value.
func (s *xlsxSource) cellValue(typ string) (string, error) {
	var (
		val    strings.Builder
		inText bool
	)
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return "", fmt.Errorf("parse cell: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "v" || el.Name.Local == "t" {
				inText = true
			}
		case xml.CharData:
			if inText {
				val.Write(el)
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "v", "t":
				inText = false
			case "c":
				if typ == "s" {
					i, err := strconv.Atoi(strings.TrimSpace(val.String()))
					if err != nil || i < 0 || i >= len(s.shared) {
						return "", nil
					}
					return s.shared[i], nil
				}
				return val.String(), nil
			}
		}
	}
}

func zipEntry(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil
		}
		return b
	}
	return nil
}

func workbookSheets(data []byte) []workbookSheet {
	var out []workbookSheet
	eachStart(data, "sheet", func(el xml.StartElement) {
		var s workbookSheet
		for _, a := range el.Attr {
			switch a.Name.Local {
			case "name":
				s.name = a.Value
			case "sheetId":
				s.sheetID, _ = strconv.Atoi(a.Value)
			case "id":
				s.relID = a.Value
			}
		}
		out = append(out, s)
	})
	return out
}

func workbookRels(data []byte) map[string]string {
	out := map[string]string{}
	eachStart(data, "Relationship", func(el xml.StartElement) {
		var id, target string
		for _, a := range el.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		if id != "" && target != "" {
			out[id] = target
		}
	})
	return out
}

func sharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		out []string
		buf strings.Builder
		inT bool
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inT = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inT = false
			case "si":
				out = append(out, buf.String())
			}
		case xml.CharData:
			if inT {
				buf.Write(el)
			}
		}
	}
}

// eachStart calls fn for every start element named local.
func eachStart(data []byte, local string, fn func(xml.StartElement)) {
	if len(data) == 0 {
		return
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		if el, ok := tok.(xml.StartElement); ok && el.Name.Local == local {
			fn(el)
		}
	}
}

// columnIndex converts a cell reference like "C12" to a 0-based column, or
// -1 when ref has no column letters.
func columnIndex(ref string) int {
	idx := 0
	n := 0
	for _, c := range strings.ToUpper(ref) {
		if c < 'A' || c > 'Z' {
			break
		}
		idx = idx*26 + int(c-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return idx - 1
}

// sheetPath turns a relationship target into a zip entry name. Targets may be
// absolute ("/xl/worksheets/sheet1.xml") or relative to xl/.
func sheetPath(rel string) string {
	if rel == "" {
		return ""
	}
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
