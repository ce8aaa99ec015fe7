package clustering

import (
	"math"
	"sort"

	"github.com/thebtf/braindump/pkg/similarity"
)

// Noise is the label of points that belong to no cluster.
const Noise = -1

// minDistance keeps lambda = 1/distance finite for duplicate points.
const minDistance = 1e-10

// Params tunes HDBSCAN.
type Params struct {
	// MinClusterSize is the smallest group reported as a cluster. Values below 2 are raised to 2.
	MinClusterSize int
	// MinSamples is the neighbourhood size for core distances, counting the point itself.
	MinSamples int
}

// DefaultParams returns min cluster size 2 and min samples 1.
func DefaultParams() Params {
	return Params{MinClusterSize: 2, MinSamples: 1}
}

type mstEdge struct {
	a, b   int
	weight float64
}

type linkNode struct {
	left, right int
	distance    float64
	size        int
}

type condensedCluster struct {
	parent    int
	birth     float64
	size      int
	children  []int
	stability float64
}

// HDBSCAN labels points by density with Euclidean distance. Labels are dense,
// starting at 0, with Noise for unclustered points.
func HDBSCAN(points [][]float32, p Params) []int {
	n := len(points)
	if n == 0 {
		return []int{}
	}
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	minSize := max(p.MinClusterSize, 2)
	if n < minSize {
		return labels
	}
	minSamples := min(max(p.MinSamples, 1), n)

	dist := pairwiseDistances(points)
	core := coreDistances(dist, minSamples)
	edges := primMST(dist, core)
	tree := singleLinkage(edges, n)
	clusters, pointCluster, pointLambda := condense(tree, n, minSize)
	selected := selectClusters(clusters)

	if len(selected) == 0 {
		// Single-cluster fallback: the points that stay in the root longest form cluster 0.
		maxLambda := 0.0
		for i := 0; i < n; i++ {
			if pointCluster[i] == 0 && pointLambda[i] > maxLambda {
				maxLambda = pointLambda[i]
			}
		}
		for i := 0; i < n; i++ {
			if pointCluster[i] == 0 && pointLambda[i] >= maxLambda {
				labels[i] = 0
			}
		}
		return labels
	}

	ids := make([]int, 0, len(selected))
	for c := range selected {
		ids = append(ids, c)
	}
	sort.Ints(ids)
	dense := make(map[int]int, len(ids))
	for i, c := range ids {
		dense[c] = i
	}

	for i := 0; i < n; i++ {
		for c := pointCluster[i]; c >= 0; c = clusters[c].parent {
			if label, ok := dense[c]; ok {
				labels[i] = label
				break
			}
		}
	}
	return labels
}

func pairwiseDistances(points [][]float32) [][]float64 {
	n := len(points)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := similarity.EuclideanDistance(points[i], points[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// coreDistances returns, for each point, the distance to its k-th nearest
// neighbour where the point itself is the first.
func coreDistances(dist [][]float64, k int) []float64 {
	core := make([]float64, len(dist))
	row := make([]float64, len(dist))
	for i := range dist {
		copy(row, dist[i])
		sort.Float64s(row)
		core[i] = row[k-1]
	}
	return core
}

// primMST builds the minimum spanning tree of the mutual reachability graph.
func primMST(dist [][]float64, core []float64) []mstEdge {
	n := len(dist)
	inTree := make([]bool, n)
	best := make([]float64, n)
	from := make([]int, n)
	for i := range best {
		best[i] = math.Inf(1)
	}

	edges := make([]mstEdge, 0, n-1)
	current := 0
	inTree[0] = true
	for len(edges) < n-1 {
		next := -1
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			mr := math.Max(dist[current][j], math.Max(core[current], core[j]))
			if mr < best[j] {
				best[j] = mr
				from[j] = current
			}
			if next < 0 || best[j] < best[next] {
				next = j
			}
		}
		inTree[next] = true
		edges = append(edges, mstEdge{a: from[next], b: next, weight: best[next]})
		current = next
	}
	return edges
}

// singleLinkage merges MST edges in ascending order. Nodes 0..n-1 are points;
// node n+k is the k-th merge and the last node is the root.
func singleLinkage(edges []mstEdge, n int) []linkNode {
	sorted := append([]mstEdge(nil), edges...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].weight < sorted[j].weight })

	parent := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	nodes := make([]linkNode, 0, n-1)
	size := func(x int) int {
		if x < n {
			return 1
		}
		return nodes[x-n].size
	}
	for _, e := range sorted {
		ra, rb := find(e.a), find(e.b)
		id := n + len(nodes)
		nodes = append(nodes, linkNode{left: ra, right: rb, distance: e.weight, size: size(ra) + size(rb)})
		parent[ra] = id
		parent[rb] = id
	}
	return nodes
}

// condense walks the linkage tree from the root, keeping only splits where both
// sides have at least minSize points. Cluster 0 is the root. It returns the
// clusters, the cluster each point fell out of and the lambda at which it did.
func condense(tree []linkNode, n, minSize int) ([]condensedCluster, []int, []float64) {
	clusters := []condensedCluster{{parent: -1, birth: 0, size: n}}
	pointCluster := make([]int, n)
	pointLambda := make([]float64, n)

	nodeSize := func(x int) int {
		if x < n {
			return 1
		}
		return tree[x-n].size
	}

	var fallOut func(node, cluster int, lambda float64)
	fallOut = func(node, cluster int, lambda float64) {
		stack := []int{node}
		for len(stack) > 0 {
			x := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if x < n {
				pointCluster[x] = cluster
				pointLambda[x] = lambda
				clusters[cluster].stability += lambda - clusters[cluster].birth
				continue
			}
			stack = append(stack, tree[x-n].left, tree[x-n].right)
		}
	}

	newCluster := func(parent int, lambda float64, size int) int {
		id := len(clusters)
		clusters = append(clusters, condensedCluster{parent: parent, birth: lambda, size: size})
		clusters[parent].children = append(clusters[parent].children, id)
		clusters[parent].stability += (lambda - clusters[parent].birth) * float64(size)
		return id
	}

	type frame struct{ node, cluster int }
	stack := []frame{{node: 2*n - 2, cluster: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		link := tree[f.node-n]
		lambda := 1 / math.Max(link.distance, minDistance)
		left, right := link.left, link.right
		lsize, rsize := nodeSize(left), nodeSize(right)

		switch {
		case lsize >= minSize && rsize >= minSize:
			stack = append(stack,
				frame{node: left, cluster: newCluster(f.cluster, lambda, lsize)},
				frame{node: right, cluster: newCluster(f.cluster, lambda, rsize)},
			)
		case lsize < minSize && rsize < minSize:
			fallOut(left, f.cluster, lambda)
			fallOut(right, f.cluster, lambda)
		case lsize < minSize:
			fallOut(left, f.cluster, lambda)
			stack = append(stack, frame{node: right, cluster: f.cluster})
		default:
			fallOut(right, f.cluster, lambda)
			stack = append(stack, frame{node: left, cluster: f.cluster})
		}
	}
	return clusters, pointCluster, pointLambda
}

// selectClusters picks clusters by excess of mass. The root is never selected.
func selectClusters(clusters []condensedCluster) map[int]bool {
	selected := make(map[int]bool)
	subtree := make([]float64, len(clusters))

	var deselect func(int)
	deselect = func(c int) {
		for _, child := range clusters[c].children {
			delete(selected, child)
			deselect(child)
		}
	}

	// Children always have larger ids than their parent.
	for c := len(clusters) - 1; c > 0; c-- {
		cl := clusters[c]
		if len(cl.children) == 0 {
			selected[c] = true
			subtree[c] = cl.stability
			continue
		}
		childSum := 0.0
		for _, child := range cl.children {
			childSum += subtree[child]
		}
		if cl.stability > childSum {
			selected[c] = true
			deselect(c)
			subtree[c] = cl.stability
		} else {
			subtree[c] = childSum
		}
	}
	return selected
}
