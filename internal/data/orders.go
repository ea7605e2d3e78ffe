// README: Order CSV loaders: the simulator's node-based format and the raw
// coordinate format that is snapped onto the network.
package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"taxisim/internal/modules/network"
	"taxisim/internal/modules/order"
	"taxisim/internal/types"
)

var ErrMissingColumn = errors.New("order file is missing required column")

// LoadOrders reads the simulator's order table: CSV with header columns
// id, pickup_node, dropoff_node, ot (seconds from midnight).
func LoadOrders(path string) ([]order.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open orders %s: %w", path, err)
	}
	defer f.Close()
	return ParseOrders(f)
}

// ParseOrders is LoadOrders over an already-open reader.
func ParseOrders(r io.Reader) ([]order.Record, error) {
	rows, cols, err := readCSV(r, []string{"id", "pickup_node", "dropoff_node", "ot"})
	if err != nil {
		return nil, err
	}
	records := make([]order.Record, 0, len(rows))
	for i, row := range rows {
		id, err1 := strconv.Atoi(row[cols["id"]])
		pickup, err2 := strconv.Atoi(row[cols["pickup_node"]])
		dropoff, err3 := strconv.Atoi(row[cols["dropoff_node"]])
		ot, err4 := strconv.Atoi(row[cols["ot"]])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return nil, fmt.Errorf("orders row %d: malformed integer field", i+2)
		}
		records = append(records, order.Record{
			ID:          types.OrderID(id),
			PickupNode:  types.NodeID(pickup),
			DropoffNode: types.NodeID(dropoff),
			RequestTime: ot,
		})
	}
	return records, nil
}

// MatchOrdersToNetwork reads the raw order table (columns id, stime, slon,
// slat, elon, elat), snaps endpoints to their nearest network node, converts
// stime from HH:MM:SS to seconds, and returns the records sorted by request
// time.
func MatchOrdersToNetwork(path string, net *network.Network) ([]order.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open orders %s: %w", path, err)
	}
	defer f.Close()
	return MatchOrders(f, net)
}

// MatchOrders is MatchOrdersToNetwork over an already-open reader.
func MatchOrders(r io.Reader, net *network.Network) ([]order.Record, error) {
	rows, cols, err := readCSV(r, []string{"id", "stime", "slon", "slat", "elon", "elat"})
	if err != nil {
		return nil, err
	}
	records := make([]order.Record, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.Atoi(row[cols["id"]])
		if err != nil {
			return nil, fmt.Errorf("orders row %d: malformed id %q", i+2, row[cols["id"]])
		}
		ot, err := parseClock(row[cols["stime"]])
		if err != nil {
			return nil, fmt.Errorf("orders row %d: %w", i+2, err)
		}
		slon, err1 := strconv.ParseFloat(row[cols["slon"]], 64)
		slat, err2 := strconv.ParseFloat(row[cols["slat"]], 64)
		elon, err3 := strconv.ParseFloat(row[cols["elon"]], 64)
		elat, err4 := strconv.ParseFloat(row[cols["elat"]], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return nil, fmt.Errorf("orders row %d: malformed coordinate field", i+2)
		}
		records = append(records, order.Record{
			ID:          types.OrderID(id),
			PickupNode:  net.NearestNode(slon, slat),
			DropoffNode: net.NearestNode(elon, elat),
			RequestTime: ot,
		})
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].RequestTime < records[j].RequestTime })
	return records, nil
}

// WriteOrders saves records in the simulator's CSV format.
func WriteOrders(path string, records []order.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "pickup_node", "dropoff_node", "ot"}); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			strconv.Itoa(int(rec.ID)),
			strconv.Itoa(int(rec.PickupNode)),
			strconv.Itoa(int(rec.DropoffNode)),
			strconv.Itoa(rec.RequestTime),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// readCSV parses a headered CSV and validates that every required column is
// present, returning the data rows and a column-name index.
func readCSV(r io.Reader, required []string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	cols := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return all[1:], cols, nil
}

// parseClock converts HH:MM:SS to seconds from midnight.
func parseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed time %q", s)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, fmt.Errorf("malformed time %q", s)
	}
	return h*3600 + m*60 + sec, nil
}
