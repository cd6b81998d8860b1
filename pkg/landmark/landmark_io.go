package landmark

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/corerouter/pkg/contractor"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"go.uber.org/zap"
)

func writeInts[T int16 | int32 | int](w *bufio.Writer, vals []T) {
	for i, v := range vals {
		if i > 0 {
			w.WriteByte(' ')
		}
		w.WriteString(strconv.FormatInt(int64(v), 10))
	}
	w.WriteByte('\n')
}

// WriteLandmarks stores the landmark table as bzip2 compressed text. The core itself is not written, it is
// recovered from the prepared graph on read.
func (lms *CoreLandmarkStorage) WriteLandmarks(filename string) error {
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

	fmt.Fprintf(w, "%s %d %d %d %s\n", lms.name, len(lms.landmarks), len(lms.coreNodes),
		len(lms.subnetworkLandmarks), strconv.FormatFloat(lms.factor, 'f', -1, 64))

	writeInts(w, lms.subnetworks)
	for _, rows := range lms.subnetworkLandmarks {
		writeInts(w, rows)
	}
	for i, l := range lms.landmarks {
		fmt.Fprintf(w, "%d\n", l)
		writeInts(w, lms.fromWeights[i])
		writeInts(w, lms.toWeights[i])
	}

	return w.Flush()
}

func parseInts(line string, bitSize int) ([]int64, error) {
	ff := util.Fields(line)
	vals := make([]int64, len(ff))
	for i, tok := range ff {
		v, err := strconv.ParseInt(tok, 10, bitSize)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func readInt16Row(br *bufio.Reader, size int) ([]int16, error) {
	line, err := util.ReadLine(br)
	if err != nil {
		return nil, err
	}
	vals, err := parseInts(line, 16)
	if err != nil {
		return nil, err
	}
	if len(vals) != size {
		return nil, fmt.Errorf("landmark row has %d values, expected %d", len(vals), size)
	}
	row := make([]int16, size)
	for c, v := range vals {
		row[c] = int16(v)
	}
	return row, nil
}

// ReadLandmarks loads a table written by WriteLandmarks for the same prepared graph.
func ReadLandmarks(filename string, prepared *contractor.PreparedGraph, restrictionFilter filter.Predicate,
	cfg Config, logger *zap.Logger) (*CoreLandmarkStorage, error) {
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
	ff := util.Fields(line)
	if len(ff) != 5 {
		return nil, fmt.Errorf("invalid landmark header %q", line)
	}
	header := make([]int, 3)
	for i := range header {
		header[i], err = strconv.Atoi(ff[i+1])
		if err != nil {
			return nil, err
		}
	}
	k, coreSize, numSubnetworks := header[0], header[1], header[2]
	factor, err := strconv.ParseFloat(ff[4], 64)
	if err != nil {
		return nil, err
	}

	lms := NewCoreLandmarkStorage(prepared, ff[0], restrictionFilter, cfg, logger)
	if coreSize != len(lms.coreNodes) {
		return nil, util.WrapErrorf(nil, util.ErrInvalidPreparedState,
			"landmark file %s was built for a core of %d nodes, prepared graph has %d", filename, coreSize, len(lms.coreNodes))
	}
	lms.factor = factor

	line, err = util.ReadLine(br)
	if err != nil {
		return nil, err
	}
	subnetworks, err := parseInts(line, 32)
	if err != nil {
		return nil, err
	}
	if len(subnetworks) != coreSize {
		return nil, fmt.Errorf("invalid subnetwork line, %d labels for %d core nodes", len(subnetworks), coreSize)
	}
	lms.subnetworks = make([]int32, coreSize)
	for c, s := range subnetworks {
		lms.subnetworks[c] = int32(s)
	}

	lms.subnetworkLandmarks = make([][]int, numSubnetworks)
	for s := 0; s < numSubnetworks; s++ {
		line, err := util.ReadLine(br)
		if err != nil {
			return nil, err
		}
		rows, err := parseInts(line, 32)
		if err != nil {
			return nil, err
		}
		lms.subnetworkLandmarks[s] = make([]int, len(rows))
		for j, r := range rows {
			if r < 0 || int(r) >= k {
				return nil, fmt.Errorf("subnetwork %d references landmark row %d of %d", s, r, k)
			}
			lms.subnetworkLandmarks[s][j] = int(r)
		}
	}

	lms.landmarks = make([]da.Index, k)
	lms.fromWeights = make([][]int16, k)
	lms.toWeights = make([][]int16, k)
	for i := 0; i < k; i++ {
		line, err := util.ReadLine(br)
		if err != nil {
			return nil, err
		}
		lms.landmarks[i], err = da.ParseIndex(line)
		if err != nil {
			return nil, err
		}
		if lms.fromWeights[i], err = readInt16Row(br, coreSize); err != nil {
			return nil, err
		}
		if lms.toWeights[i], err = readInt16Row(br, coreSize); err != nil {
			return nil, err
		}
	}

	return lms, nil
}
