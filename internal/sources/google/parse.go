package google

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"custdash/internal/core"
)

// parseCustomers converts a Customers sheet into customers. The first row is
// a header when it names an "id" column; otherwise columns are id, name.
// Rows without an id are skipped; the number of skipped non-blank rows is
// returned so the caller can log it.
func parseCustomers(values [][]interface{}) ([]core.Customer, int) {
	rows, colID, colName := splitHeader(values, []string{"id", "name"})
	out := make([]core.Customer, 0, len(rows))
	skipped := 0
	for _, raw := range rows {
		row := toStrings(raw)
		if isBlank(row) {
			continue
		}
		id, err := parseID(safeGet(row, colID))
		name := safeGet(row, colName)
		if err != nil || name == "" {
			skipped++
			continue
		}
		out = append(out, core.Customer{ID: id, Name: name})
	}
	return out, skipped
}

// parseTransactions converts a Transactions sheet. Columns are id,
// customer_id, date, amount unless a header row says otherwise.
func parseTransactions(values [][]interface{}) ([]core.Transaction, int) {
	rows, cols := splitHeaderN(values, []string{"id", "customer_id", "date", "amount"})
	out := make([]core.Transaction, 0, len(rows))
	skipped := 0
	for _, raw := range rows {
		row := toStrings(raw)
		if isBlank(row) {
			continue
		}
		id, errID := parseID(safeGet(row, cols[0]))
		customerID, errCust := parseID(safeGet(row, cols[1]))
		date := safeGet(row, cols[2])
		amount, okAmount := parseAmount(safeGet(row, cols[3]))
		if errID != nil || errCust != nil || date == "" || !okAmount {
			skipped++
			continue
		}
		out = append(out, core.Transaction{ID: id, CustomerID: customerID, Date: date, Amount: amount})
	}
	return out, skipped
}

func splitHeader(values [][]interface{}, names []string) ([][]interface{}, int, int) {
	rows, cols := splitHeaderN(values, names)
	return rows, cols[0], cols[1]
}

// splitHeaderN locates the named columns. Without a recognisable header the
// columns are positional.
func splitHeaderN(values [][]interface{}, names []string) ([][]interface{}, []int) {
	cols := make([]int, len(names))
	for i := range cols {
		cols[i] = i
	}
	if len(values) == 0 {
		return nil, cols
	}
	headers := toStrings(values[0])
	if indexOf(headers, names[0]) == -1 {
		return values, cols
	}
	for i, name := range names {
		cols[i] = indexOf(headers, name)
		if cols[i] == -1 {
			cols[i] = indexOf(headers, strings.ReplaceAll(name, "_", " "))
		}
	}
	return values[1:], cols
}

func parseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty id")
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
		return id, nil
	}
	// Sheets may hand back integral numbers as "12.0"
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f != float64(int64(f)) {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return int64(f), nil
}

func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
