// Package basket turns tabular purchase data into transactions for mining.
//
// Two layouts are understood:
//   - long: one row per (transaction, item) pair, e.g. the groceries dataset
//     with Member_number, Date and itemDescription columns. Rows sharing the
//     transaction columns form one basket.
//   - wide: one row per basket, every non-empty cell is an item.
//
// CSV/TSV and XLSX inputs are supported.
package basket

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/basketloom-cli/internal/mining"
)

// Format selects the table layout.
type Format string

const (
	FormatLong Format = "long"
	FormatWide Format = "wide"
)

// ParseFormat resolves a layout name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "long":
		return FormatLong, nil
	case "wide", "basket":
		return FormatWide, nil
	}
	return "", fmt.Errorf("unsupported format: %s (use long|wide)", s)
}

// Options controls how rows become transactions.
type Options struct {
	Format Format
	// TransactionCols are joined to form the transaction key (long format).
	TransactionCols []string
	// ItemCol holds the item label (long format).
	ItemCol string
	// Header marks the first row as column names. Long format requires it.
	Header bool
	// Delimiter for CSV. If 0, picked from the file extension.
	Delimiter rune
	// Lowercase folds item labels to lower case after trimming.
	Lowercase bool
	// MaxRows limits data rows processed; 0 means unlimited.
	MaxRows int
	// Sheet and SheetIndex (1-based) select the XLSX worksheet.
	Sheet      string
	SheetIndex int
}

// DefaultOptions matches the groceries dataset layout.
func DefaultOptions() Options {
	return Options{
		Format:          FormatLong,
		TransactionCols: []string{"Member_number", "Date"},
		ItemCol:         "itemDescription",
		Header:          true,
		Lowercase:       true,
		SheetIndex:      1,
	}
}

// Dataset is the loaded transaction list.
type Dataset struct {
	Name         string
	Rows         int
	Processed    int
	Transactions [][]mining.Item
	Warnings     []string
}

// Matrix builds the transaction matrix for mining.
func (d *Dataset) Matrix() (*mining.TransactionMatrix, error) {
	return mining.NewTransactionMatrix(d.Transactions)
}

// rowSource yields raw rows; Next returns io.EOF when exhausted.
type rowSource interface {
	Next() ([]string, error)
}

// LoadFile reads path, choosing the reader by extension.
func LoadFile(path string, opt Options) (*Dataset, error) {
	var (
		src rowSource
		err error
	)
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		src, err = openXLSX(path, opt.Sheet, opt.SheetIndex)
	case strings.HasSuffix(lower, ".csv"), strings.HasSuffix(lower, ".tsv"), strings.HasSuffix(lower, ".txt"):
		var closer io.Closer
		src, closer, err = openCSV(path, opt.Delimiter)
		if closer != nil {
			defer closer.Close()
		}
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Base(path))
	}
	if err != nil {
		return nil, err
	}
	ds, err := load(src, opt)
	if err != nil {
		return nil, err
	}
	ds.Name = filepath.Base(path)
	return ds, nil
}

func load(src rowSource, opt Options) (*Dataset, error) {
	switch opt.Format {
	case FormatWide:
		return loadWide(src, opt)
	case FormatLong, "":
		return loadLong(src, opt)
	}
	return nil, fmt.Errorf("unsupported format: %s", opt.Format)
}

func loadLong(src rowSource, opt Options) (*Dataset, error) {
	if opt.ItemCol == "" {
		return nil, errors.New("long format requires an item column")
	}
	header, err := src.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Dataset{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := map[string]int{}
	var names []string
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		index[strings.ToLower(name)] = i
		names = append(names, name)
	}
	col := func(name string) (int, error) {
		idx, ok := index[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("column %q not found (have: %s)", name, strings.Join(names, ", "))
		}
		return idx, nil
	}
	itemIdx, err := col(opt.ItemCol)
	if err != nil {
		return nil, err
	}
	txIdx := make([]int, 0, len(opt.TransactionCols))
	for _, c := range opt.TransactionCols {
		idx, err := col(c)
		if err != nil {
			return nil, err
		}
		txIdx = append(txIdx, idx)
	}

	ds := &Dataset{}
	maxRows := rowLimit(opt.MaxRows)
	order := map[string]int{}
	var emptyItems int
	for {
		rec, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", ds.Rows+1, err)
		}
		ds.Rows++
		if ds.Processed >= maxRows {
			continue
		}
		ds.Processed++

		item := normalizeItem(cell(rec, itemIdx), opt.Lowercase)
		if item == "" {
			emptyItems++
			continue
		}
		parts := make([]string, len(txIdx))
		for i, idx := range txIdx {
			parts[i] = strings.TrimSpace(cell(rec, idx))
		}
		key := strings.Join(parts, " | ")
		if len(txIdx) == 0 {
			// without transaction columns every row is its own basket
			key = fmt.Sprintf("row %d", ds.Rows)
		}
		t, ok := order[key]
		if !ok {
			t = len(ds.Transactions)
			order[key] = t
			ds.Transactions = append(ds.Transactions, nil)
		}
		ds.Transactions[t] = appendUnique(ds.Transactions[t], item)
	}
	if emptyItems > 0 {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("skipped %d rows with an empty %s", emptyItems, opt.ItemCol))
	}
	ds.noteTruncation()
	return ds, nil
}

func loadWide(src rowSource, opt Options) (*Dataset, error) {
	ds := &Dataset{}
	if opt.Header {
		if _, err := src.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				return ds, nil
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
	}
	maxRows := rowLimit(opt.MaxRows)
	var blank int
	for {
		rec, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", ds.Rows+1, err)
		}
		ds.Rows++
		if ds.Processed >= maxRows {
			continue
		}
		ds.Processed++
		var tx []mining.Item
		for _, v := range rec {
			if it := normalizeItem(v, opt.Lowercase); it != "" {
				tx = appendUnique(tx, it)
			}
		}
		if len(tx) == 0 {
			blank++
		}
		ds.Transactions = append(ds.Transactions, tx)
	}
	if blank > 0 {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("%d baskets have no items", blank))
	}
	ds.noteTruncation()
	return ds, nil
}

func (d *Dataset) noteTruncation() {
	if d.Processed < d.Rows {
		d.Warnings = append(d.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", d.Processed, d.Rows))
	}
}

func rowLimit(n int) int {
	if n <= 0 {
		return math.MaxInt
	}
	return n
}

func cell(rec []string, idx int) string {
	if idx < len(rec) {
		return rec[idx]
	}
	return ""
}

func normalizeItem(v string, lower bool) mining.Item {
	v = strings.TrimSpace(strings.ReplaceAll(v, "\u00A0", " "))
	if lower {
		v = strings.ToLower(v)
	}
	return mining.Item(v)
}

func appendUnique(tx []mining.Item, it mining.Item) []mining.Item {
	for _, have := range tx {
		if have == it {
			return tx
		}
	}
	return append(tx, it)
}
