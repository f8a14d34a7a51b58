package topology

import (
	"hash/fnv"
	"strconv"

	rendezvous "github.com/dgryski/go-rendezvous"
)

// DefaultMapping assigns coreIDs to nodes 0..nodeCount-1 via rendezvous
// hashing, with no mapping file involved. The CLI does not call it: a
// --ctg_file run always reads its mapping from --mapping_file through the
// task loader (spec.md §6 TaskLoader.load_mapping). Rendezvous hashing gives a
// stable, deterministic placement that is re-mapping-minimal if the node
// count later changes, unlike a plain modulo hash.
func DefaultMapping(coreIDs []string, nodeCount int) map[string]int {
	nodes := make([]string, nodeCount)
	for i := range nodes {
		nodes[i] = strconv.Itoa(i)
	}
	r := rendezvous.New(nodes, fnvHash)

	mapping := make(map[string]int, len(coreIDs))
	for _, core := range coreIDs {
		node := r.Lookup(core)
		id, _ := strconv.Atoi(node)
		mapping[core] = id
	}
	return mapping
}

func fnvHash(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
