package exceptional

import (
	"sort"

	"github.com/KaramelBytes/exval-cli/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// GroupMeans maps a grouping key to the mean response over the rows sharing it.
// It is built once and only read afterwards.
type GroupMeans struct {
	means map[dataset.Key]float64
	sizes map[dataset.Key]int
}

// groupMeans partitions rows by keyOf and averages the response per partition.
func groupMeans(rows []dataset.Row, keyOf func(dataset.Row) dataset.Key) *GroupMeans {
	values := make(map[dataset.Key][]float64)
	for _, r := range rows {
		k := keyOf(r)
		values[k] = append(values[k], r.Response)
	}
	g := &GroupMeans{
		means: make(map[dataset.Key]float64, len(values)),
		sizes: make(map[dataset.Key]int, len(values)),
	}
	for k, vs := range values {
		g.means[k] = stat.Mean(vs, nil)
		g.sizes[k] = len(vs)
	}
	return g
}

// combinationKey keys a row by its full dimension tuple.
func combinationKey(r dataset.Row) dataset.Key {
	return dataset.KeyOf(r.Dimensions...)
}

// dimensionKey keys a row by its value on the dimension at position i alone.
func dimensionKey(i int) func(dataset.Row) dataset.Key {
	return func(r dataset.Row) dataset.Key {
		return dataset.KeyOf(r.Dimensions[i])
	}
}

// Mean returns the group mean for k.
func (g *GroupMeans) Mean(k dataset.Key) (float64, bool) {
	m, ok := g.means[k]
	return m, ok
}

// Size returns how many rows fell into group k.
func (g *GroupMeans) Size(k dataset.Key) int { return g.sizes[k] }

// Len returns the number of distinct keys.
func (g *GroupMeans) Len() int { return len(g.means) }

// Keys returns the group keys in sorted order.
func (g *GroupMeans) Keys() []dataset.Key {
	keys := make([]dataset.Key, 0, len(g.means))
	for k := range g.means {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
