package datastructure

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/util"
)

// WriteGraph stores vertices, levels, original edges with their attributes, shortcuts and turn costs as bzip2
// compressed text.
func (g *Graph) WriteGraph(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	defer bz.Close()

	w := bufio.NewWriter(bz)

	prepared := 0
	if g.prepared {
		prepared = 1
	}
	fmt.Fprintf(w, "%d %d %d %d %d\n", len(g.vertices), len(g.edges), g.numOriginalEdges, prepared, len(g.turnCosts))

	for vId, v := range g.vertices {
		latF := strconv.FormatFloat(v.lat, 'f', -1, 64)
		lonF := strconv.FormatFloat(v.lon, 'f', -1, 64)
		fmt.Fprintf(w, "%s %s %d\n", latF, lonF, g.levels[vId])
	}

	for _, e := range g.edges {
		weightF := strconv.FormatFloat(e.weight, 'f', -1, 64)
		distF := strconv.FormatFloat(e.dist, 'f', -1, 64)
		if e.shortcut {
			fmt.Fprintf(w, "s %d %d %s %s %d %d %d\n",
				e.tail, e.head, weightF, distF, e.skipped1, e.skipped2, e.originalEdgeCount)
			continue
		}

		a := g.attributes[e.id]
		fmt.Fprintf(w, "o %d %d %s %d %d %s %d %d %s %s %s\n",
			e.tail, e.head, distF, a.HighwayType, a.Surface,
			strconv.FormatFloat(a.MaxSpeed, 'f', -1, 64), a.BaseCountry, a.AdjCountry,
			strconv.FormatFloat(a.MaxHeight, 'f', -1, 64),
			strconv.FormatFloat(a.MaxWidth, 'f', -1, 64),
			strconv.FormatFloat(a.MaxWeight, 'f', -1, 64))
	}

	g.ForEachTurnCost(func(from, via, to Index, cost float64) {
		fmt.Fprintf(w, "t %d %d %s\n", from, to, strconv.FormatFloat(cost, 'f', -1, 64))
	})

	return w.Flush()
}

func ParseIndex(s string) (Index, error) {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if u > math.MaxUint32 {
		return 0, fmt.Errorf("value %s overflows uint32", s)
	}
	return Index(u), nil
}

func parseFloats(tokens []string) ([]float64, error) {
	vals := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func ReadGraph(filename string) (*Graph, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(bz)

	line, err := util.ReadLine(br)
	if err != nil {
		return nil, err
	}

	tokens := util.Fields(line)
	if len(tokens) != 4 && len(tokens) != 5 {
		return nil, errors.New("invalid graph header")
	}

	header := make([]int, 5)
	for i, tok := range tokens {
		header[i], err = strconv.Atoi(tok)
		if err != nil {
			return nil, err
		}
	}
	numVertices, numEdges := header[0], header[1]

	g := NewGraph()
	levels := make([]uint32, numVertices)
	for v := 0; v < numVertices; v++ {
		line, err := util.ReadLine(br)
		if err != nil {
			return nil, err
		}
		tokens := util.Fields(line)
		if len(tokens) != 3 {
			return nil, fmt.Errorf("invalid vertex line %d", v)
		}
		coords, err := parseFloats(tokens[:2])
		if err != nil {
			return nil, err
		}
		level, err := strconv.ParseUint(tokens[2], 10, 32)
		if err != nil {
			return nil, err
		}
		g.AddVertex(coords[0], coords[1])
		levels[v] = uint32(level)
	}

	for i := 0; i < numEdges; i++ {
		line, err := util.ReadLine(br)
		if err != nil {
			return nil, err
		}
		tokens := util.Fields(line)
		if len(tokens) < 3 {
			return nil, fmt.Errorf("invalid edge line %d", i)
		}
		tail, err := ParseIndex(tokens[1])
		if err != nil {
			return nil, err
		}
		head, err := ParseIndex(tokens[2])
		if err != nil {
			return nil, err
		}

		switch tokens[0] {
		case "s":
			if len(tokens) != 8 {
				return nil, fmt.Errorf("invalid shortcut line %d", i)
			}
			vals, err := parseFloats(tokens[3:5])
			if err != nil {
				return nil, err
			}
			skipped1, err := ParseIndex(tokens[5])
			if err != nil {
				return nil, err
			}
			skipped2, err := ParseIndex(tokens[6])
			if err != nil {
				return nil, err
			}
			count, err := strconv.Atoi(tokens[7])
			if err != nil {
				return nil, err
			}
			g.AddShortcut(tail, head, vals[0], vals[1], skipped1, skipped2, count)
		case "o":
			if len(tokens) != 12 {
				return nil, fmt.Errorf("invalid edge line %d", i)
			}
			vals, err := parseFloats([]string{tokens[3], tokens[6], tokens[9], tokens[10], tokens[11]})
			if err != nil {
				return nil, err
			}
			ints := make([]uint64, 4)
			for j, tok := range []string{tokens[4], tokens[5], tokens[7], tokens[8]} {
				ints[j], err = strconv.ParseUint(tok, 10, 16)
				if err != nil {
					return nil, err
				}
			}
			attr := NewEdgeAttributes(pkg.OsmHighwayType(ints[0]), SurfaceType(ints[1]), vals[1]).
				WithCountries(uint16(ints[2]), uint16(ints[3])).
				WithLimits(vals[2], vals[3], vals[4])
			g.AddEdge(tail, head, vals[0], attr)
		default:
			return nil, fmt.Errorf("unknown edge kind %q", tokens[0])
		}
	}

	for i := 0; i < header[4]; i++ {
		line, err := util.ReadLine(br)
		if err != nil {
			return nil, err
		}
		tokens := util.Fields(line)
		if len(tokens) != 4 || tokens[0] != "t" {
			return nil, fmt.Errorf("invalid turn cost line %d", i)
		}
		from, err := ParseIndex(tokens[1])
		if err != nil {
			return nil, err
		}
		to, err := ParseIndex(tokens[2])
		if err != nil {
			return nil, err
		}
		cost, err := strconv.ParseFloat(tokens[3], 64)
		if err != nil {
			return nil, err
		}
		if err := g.SetTurnCost(from, to, cost); err != nil {
			return nil, err
		}
	}

	copy(g.levels, levels)
	if header[3] == 1 {
		g.MarkPrepared()
	}
	return g, nil
}
