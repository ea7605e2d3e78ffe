// README: GraphML road-network loader: parses nodes/edges, keeps the
// largest connected component, and renumbers ids densely.
package data

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"taxisim/internal/modules/network"
	"taxisim/internal/types"
)

// DefaultSpeed is the fallback travel speed (length units per time unit)
// used to derive edge times when the file carries only lengths.
const DefaultSpeed = 10.0

var (
	ErrNoCoordinates = errors.New("node has no coordinate attributes")
	ErrNoEdgeLength  = errors.New("edge has neither time nor length attribute")
)

// graphml mirrors the subset of the GraphML schema we read.
type graphml struct {
	XMLName xml.Name     `xml:"graphml"`
	Keys    []graphmlKey `xml:"key"`
	Graph   struct {
		Nodes []graphmlNode `xml:"node"`
		Edges []graphmlEdge `xml:"edge"`
	} `xml:"graph"`
}

type graphmlKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphmlData `xml:"data"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// LoadGraphML reads a GraphML file into a network graph. Only the largest
// connected component survives; its nodes are renumbered 0..n-1 in ascending
// original-id order (numeric ids sort numerically, others last). Edge times
// fall back to ceil(length/speed) when absent. speed <= 0 selects the
// default.
func LoadGraphML(path string, speed float64) (*network.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graphml %s: %w", path, err)
	}
	defer f.Close()
	return ParseGraphML(f, speed)
}

// ParseGraphML is LoadGraphML over an already-open reader.
func ParseGraphML(r io.Reader, speed float64) (*network.Graph, error) {
	if speed <= 0 {
		speed = DefaultSpeed
	}
	var doc graphml
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode graphml: %w", err)
	}

	// GraphML data elements reference keys by id; resolve them to names.
	keyName := make(map[string]string, len(doc.Keys))
	for _, k := range doc.Keys {
		keyName[k.ID] = k.AttrName
	}
	attrs := func(data []graphmlData) map[string]string {
		m := make(map[string]string, len(data))
		for _, d := range data {
			name := keyName[d.Key]
			if name == "" {
				name = d.Key
			}
			m[name] = d.Value
		}
		return m
	}

	type rawNode struct {
		id    string
		coord types.Point
	}
	nodes := make([]rawNode, 0, len(doc.Graph.Nodes))
	index := make(map[string]int, len(doc.Graph.Nodes))
	for _, n := range doc.Graph.Nodes {
		coord, err := nodeCoord(attrs(n.Data))
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		index[n.ID] = len(nodes)
		nodes = append(nodes, rawNode{id: n.ID, coord: coord})
	}

	type rawEdge struct {
		u, v   int
		length float64
		time   int
	}
	edges := make([]rawEdge, 0, len(doc.Graph.Edges))
	for _, e := range doc.Graph.Edges {
		u, okU := index[e.Source]
		v, okV := index[e.Target]
		if !okU || !okV {
			return nil, fmt.Errorf("edge (%s,%s): %w", e.Source, e.Target, network.ErrBadEdge)
		}
		length, tt, err := edgeWeights(attrs(e.Data), speed)
		if err != nil {
			return nil, fmt.Errorf("edge (%s,%s): %w", e.Source, e.Target, err)
		}
		edges = append(edges, rawEdge{u: u, v: v, length: length, time: tt})
	}

	// Union-find over the raw indices to isolate the largest component.
	parent := make([]int, len(nodes))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for _, e := range edges {
		ru, rv := find(e.u), find(e.v)
		if ru != rv {
			parent[ru] = rv
		}
	}
	compSize := make(map[int]int)
	for i := range nodes {
		compSize[find(i)]++
	}
	bestRoot, bestSize := -1, 0
	for root, size := range compSize {
		if size > bestSize || (size == bestSize && root < bestRoot) {
			bestRoot, bestSize = root, size
		}
	}

	// Renumber surviving nodes densely, ordered by original id.
	type keep struct {
		raw  int
		id   string
		sort nodeSortKey
	}
	var kept []keep
	for i, n := range nodes {
		if find(i) != bestRoot {
			continue
		}
		kept = append(kept, keep{raw: i, id: n.id, sort: sortKey(n.id)})
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].sort.less(kept[j].sort) })

	newID := make(map[int]types.NodeID, len(kept))
	coords := make([]types.Point, len(kept))
	for i, k := range kept {
		newID[k.raw] = types.NodeID(i)
		coords[i] = nodes[k.raw].coord
	}

	var netEdges []network.Edge
	for _, e := range edges {
		u, okU := newID[e.u]
		v, okV := newID[e.v]
		if !okU || !okV {
			continue
		}
		netEdges = append(netEdges, network.Edge{U: u, V: v, Length: e.length, Time: e.time})
	}
	return network.NewGraph(coords, netEdges)
}

// nodeCoord extracts a coordinate from node attributes, accepting the
// common name variants.
func nodeCoord(attrs map[string]string) (types.Point, error) {
	pairs := [][2]string{{"x", "y"}, {"lon", "lat"}, {"longitude", "latitude"}}
	for _, p := range pairs {
		xs, okX := attrs[p[0]]
		ys, okY := attrs[p[1]]
		if !okX || !okY {
			continue
		}
		x, errX := strconv.ParseFloat(xs, 64)
		y, errY := strconv.ParseFloat(ys, 64)
		if errX != nil || errY != nil {
			continue
		}
		return types.Point{X: x, Y: y}, nil
	}
	return types.Point{}, ErrNoCoordinates
}

// edgeWeights reads (length, time) from edge attributes. A missing time is
// derived from length at the given speed.
func edgeWeights(attrs map[string]string, speed float64) (length float64, tt int, err error) {
	if s, ok := attrs["length"]; ok {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			length = v
		}
	}
	if s, ok := attrs["time"]; ok {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("bad time attribute %q", s)
		}
		return length, int(math.Ceil(v)), nil
	}
	if length > 0 {
		return length, int(math.Ceil(length / speed)), nil
	}
	return 0, 0, ErrNoEdgeLength
}

// nodeSortKey orders numeric ids numerically and keeps non-numeric ids
// after them in lexical order.
type nodeSortKey struct {
	numeric bool
	num     int64
	raw     string
}

func sortKey(id string) nodeSortKey {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return nodeSortKey{numeric: true, num: n, raw: id}
	}
	return nodeSortKey{raw: id}
}

func (k nodeSortKey) less(o nodeSortKey) bool {
	if k.numeric != o.numeric {
		return k.numeric
	}
	if k.numeric {
		if k.num != o.num {
			return k.num < o.num
		}
		return k.raw < o.raw
	}
	return k.raw < o.raw
}
