// Package plan implements the Planner (component E): compiling a
// graphical query's node/edge diagram into a single query.Query tree by
// enumerating source-to-sink paths, synthesizing control-flow predicates
// between adjacent activity predicates, applying the exact-mode ordering
// heuristic, and resolving OR-Split/OR-Join sharing between paths.
package plan

import (
	"sort"

	"github.com/gyunamister/goproq/internal/apperr"
	"github.com/gyunamister/goproq/internal/index"
	"github.com/gyunamister/goproq/internal/model"
	"github.com/gyunamister/goproq/internal/query"
)

// NodeKind distinguishes an already-converted query node from an OR node.
type NodeKind string

const (
	NodeQuery NodeKind = "query"
	NodeOr    NodeKind = "or"
)

// OrRole annotates an OR node as the point a diagram branches or rejoins.
type OrRole string

const (
	OrSplit OrRole = "split"
	OrJoin  OrRole = "join"
)

// Node is one diagram node, already past the Converter: query nodes carry
// a query.Query (ActivityQuery, ObjectTypeQuery or ControlFlowQuery), OR
// nodes carry a role.
type Node struct {
	ID     string
	Kind   NodeKind
	Query  query.Query
	OrRole OrRole
}

// Edge is a directed diagram edge.
type Edge struct {
	Source, Target string
}

// Graph is the node/edge diagram the planner compiles.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Options configures compilation.
type Options struct {
	// Exact enables the ordering heuristic (spec.md §4.E step 3). When
	// false, unique nodes and paths are compiled in diagram order.
	Exact bool
	// TypeCardinality returns the number of objects of ot across the log
	// being queried; used only by the exact-mode heuristic to run
	// cheaper, more selective predicates first. Nil treats every type as
	// equally sized.
	TypeCardinality func(ot model.ObjectType) int
}

// LogTypeCardinality builds a TypeCardinality callback counting objects of
// a type across every execution of log.
func LogTypeCardinality(log *index.Log) func(model.ObjectType) int {
	return func(ot model.ObjectType) int {
		n := 0
		for _, exec := range log.Executions() {
			n += len(exec.ObjectsOf(ot))
		}
		return n
	}
}

// Plan is the compiled form of a graphical query.
type Plan struct {
	Query     query.Query
	NumPaths  int
	NumUnique int
}

// Compile turns a Graph into a single query.Query, ready for eval.Evaluate.
func Compile(g Graph, opts Options) (*Plan, error) {
	if len(g.Nodes) == 0 {
		return nil, apperr.New(apperr.KindConversion, "planner graph has no nodes")
	}

	out := make(map[string][]string)
	in := make(map[string][]string)
	byID := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}
	for _, e := range g.Edges {
		out[e.Source] = append(out[e.Source], e.Target)
		in[e.Target] = append(in[e.Target], e.Source)
	}

	var sources, sinks, unique []string
	for _, n := range g.Nodes {
		hasIn := len(in[n.ID]) > 0
		hasOut := len(out[n.ID]) > 0
		switch {
		case !hasIn && !hasOut:
			unique = append(unique, n.ID)
		case !hasIn && hasOut:
			sources = append(sources, n.ID)
		case hasIn && !hasOut:
			sinks = append(sinks, n.ID)
		}
	}

	paths := enumeratePaths(sources, sinks, out)
	infos := make([]pathInfo, len(paths))
	for i, p := range paths {
		infos[i] = analyzePath(p, byID, opts)
	}

	uniqueQuery := compileUnique(unique, byID, opts)
	pathsQuery, err := resolvePaths(infos, byID, opts)
	if err != nil {
		return nil, err
	}

	var final query.Query
	switch {
	case uniqueQuery != nil && pathsQuery != nil:
		final = query.And{Left: uniqueQuery, Right: pathsQuery}
	case uniqueQuery != nil:
		final = uniqueQuery
	case pathsQuery != nil:
		final = pathsQuery
	default:
		return nil, apperr.New(apperr.KindConversion, "planner graph compiled to no predicates")
	}

	return &Plan{Query: final, NumPaths: len(paths), NumUnique: len(unique)}, nil
}

func realNodes(path []string, byID map[string]Node) []Node {
	var out []Node
	for _, id := range path {
		if n := byID[id]; n.Kind == NodeQuery {
			out = append(out, n)
		}
	}
	return out
}

// pathInfo carries one enumerated path plus the ordering-heuristic metrics
// spec.md §4.E step 3 ranks paths by.
type pathInfo struct {
	ids       []string
	steps     query.Query
	efCount   int
	dfCount   int
	firstEF   int // index of first EF predicate among the steps, or len(steps) if none
	typeCard  int
	orNodes   map[string]Node
}

func analyzePath(ids []string, byID map[string]Node, opts Options) pathInfo {
	real := realNodes(ids, byID)
	info := pathInfo{ids: ids, orNodes: map[string]Node{}}
	for _, id := range ids {
		if n := byID[id]; n.Kind == NodeOr {
			info.orNodes[id] = n
		}
	}

	var steps []query.Query
	minCard := -1
	for i, n := range real {
		steps = append(steps, n.Query)
		if aq, ok := n.Query.(query.ActivityQuery); ok && opts.TypeCardinality != nil {
			c := opts.TypeCardinality(aq.Object.ObjectType)
			if minCard == -1 || c < minCard {
				minCard = c
			}
		}
		if i+1 >= len(real) {
			continue
		}
		if cf, ok := synthesizeControlFlow(n, real[i+1]); ok {
			steps = append(steps, cf)
		}
	}
	if minCard == -1 {
		minCard = 0
	}
	info.typeCard = minCard

	// Count DF/EF predicates over every step — both synthesized ones and
	// any explicit controlFlowQuery diagram node already present among
	// the real nodes — for the step 3 ordering heuristic.
	info.firstEF = len(steps)
	for idx, s := range steps {
		cfq, ok := s.(query.ControlFlowQuery)
		if !ok {
			continue
		}
		if cfq.Relation == query.EF {
			if info.efCount == 0 {
				info.firstEF = idx
			}
			info.efCount++
		} else {
			info.dfCount++
		}
	}

	info.steps = foldAnd(steps)
	return info
}

// synthesizeControlFlow lifts a DF predicate between two adjacent activity
// predicates on a path (spec.md §4.E step 2). DF is the default relation
// synthesized between consecutive activityQuery nodes; only an explicit
// controlFlowQuery diagram node produces an EF predicate, so a
// synthesized pair is always DF — kept as its own function so a future
// diagram annotation (e.g. an explicit EF marker between two nodes) can
// plug in without touching callers.
func synthesizeControlFlow(a, b Node) (query.Query, bool) {
	aq, aok := a.Query.(query.ActivityQuery)
	bq, bok := b.Query.(query.ActivityQuery)
	if !aok || !bok {
		return nil, false
	}
	return query.ControlFlowQuery{First: aq, Second: bq, Relation: query.DF}, true
}

func foldAnd(steps []query.Query) query.Query {
	if len(steps) == 0 {
		return nil
	}
	result := steps[0]
	for _, s := range steps[1:] {
		result = query.And{Left: result, Right: s}
	}
	return result
}

func compileUnique(ids []string, byID map[string]Node, opts Options) query.Query {
	if len(ids) == 0 {
		return nil
	}
	nodes := make([]Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := byID[id]; ok && n.Kind == NodeQuery {
			nodes = append(nodes, n)
		}
	}
	if opts.Exact {
		sort.SliceStable(nodes, func(i, j int) bool {
			ri, rj := uniqueRank(nodes[i].Query), uniqueRank(nodes[j].Query)
			if ri != rj {
				return ri < rj
			}
			if opts.TypeCardinality == nil {
				return false
			}
			return uniqueCardinality(nodes[i].Query, opts.TypeCardinality) < uniqueCardinality(nodes[j].Query, opts.TypeCardinality)
		})
	}
	var q query.Query
	for _, n := range nodes {
		if q == nil {
			q = n.Query
			continue
		}
		q = query.And{Left: q, Right: n.Query}
	}
	return q
}

func uniqueRank(q query.Query) int {
	if _, ok := q.(query.ObjectTypeQuery); ok {
		return 0
	}
	return 1
}

func uniqueCardinality(q query.Query, card func(model.ObjectType) int) int {
	switch v := q.(type) {
	case query.ObjectTypeQuery:
		return card(v.Component.ObjectType)
	case query.ActivityQuery:
		return card(v.Object.ObjectType)
	default:
		return 0
	}
}

func enumeratePaths(sources, sinks []string, out map[string][]string) [][]string {
	sinkSet := make(map[string]bool, len(sinks))
	for _, s := range sinks {
		sinkSet[s] = true
	}
	var paths [][]string
	for _, src := range sources {
		visited := map[string]bool{src: true}
		walkPaths(src, []string{src}, out, sinkSet, visited, &paths)
	}
	return paths
}

func walkPaths(cur string, path []string, out map[string][]string, sinks map[string]bool, visited map[string]bool, paths *[][]string) {
	if sinks[cur] {
		cp := make([]string, len(path))
		copy(cp, path)
		*paths = append(*paths, cp)
	}
	for _, next := range out[cur] {
		if visited[next] {
			continue
		}
		visited[next] = true
		walkPaths(next, append(path, next), out, sinks, visited, paths)
		delete(visited, next)
	}
}

// relation is the pairwise combination spec.md §4.E step 4 assigns two
// paths sharing an OR node.
type relation int

const (
	relAnd relation = iota
	relOr
)

// relationBetween classifies how two paths combine. Paths sharing no OR
// node but no ordinary node either come from disjoint parts of the
// diagram and are treated as independently required (AND); paths sharing
// ordinary nodes but no OR node are alternate routes through the same
// subgraph (OR). Neither case is named explicitly in the source rules,
// which only cover paths that share an OR node — this fills the gap.
func relationBetween(a, b pathInfo) relation {
	var sharedSplit, sharedJoin []string
	for id, n := range a.orNodes {
		if _, ok := b.orNodes[id]; !ok {
			continue
		}
		if n.OrRole == OrSplit {
			sharedSplit = append(sharedSplit, id)
		} else {
			sharedJoin = append(sharedJoin, id)
		}
	}

	if len(sharedSplit) > 0 && len(sharedJoin) > 0 {
		return relOr
	}
	for _, s := range sharedSplit {
		if nextRealAfter(a.ids, s, a.orNodes) == nextRealAfter(b.ids, s, b.orNodes) {
			return relAnd
		}
	}
	for _, j := range sharedJoin {
		if prevRealBefore(a.ids, j, a.orNodes) == prevRealBefore(b.ids, j, b.orNodes) {
			return relAnd
		}
	}
	if len(sharedSplit) > 0 || len(sharedJoin) > 0 {
		return relOr
	}

	if sharesAnyNode(a.ids, b.ids) {
		return relOr
	}
	return relAnd
}

func sharesAnyNode(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if set[id] {
			return true
		}
	}
	return false
}

func nextRealAfter(path []string, id string, orNodes map[string]Node) string {
	for i, n := range path {
		if n != id {
			continue
		}
		for _, next := range path[i+1:] {
			if _, isOr := orNodes[next]; !isOr {
				return next
			}
		}
	}
	return ""
}

func prevRealBefore(path []string, id string, orNodes map[string]Node) string {
	for i, n := range path {
		if n != id {
			continue
		}
		for k := i - 1; k >= 0; k-- {
			if _, isOr := orNodes[path[k]]; !isOr {
				return path[k]
			}
		}
	}
	return ""
}

type unionFind struct{ parent []int }

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// resolvePaths applies spec.md §4.E step 4: AND-merge path groups sharing
// a Split/Join with the same neighboring real node, OR-merge the rest, AND
// before OR to preserve distributivity.
func resolvePaths(infos []pathInfo, byID map[string]Node, opts Options) (query.Query, error) {
	if len(infos) == 0 {
		return nil, nil
	}
	if opts.Exact {
		sortPathInfos(infos)
	}

	uf := newUnionFind(len(infos))
	for i := 0; i < len(infos); i++ {
		for j := i + 1; j < len(infos); j++ {
			if relationBetween(infos[i], infos[j]) == relAnd {
				uf.union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	for i := range infos {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	rootIDs := make([]int, 0, len(groups))
	for root := range groups {
		rootIDs = append(rootIDs, root)
	}
	sort.Slice(rootIDs, func(i, j int) bool {
		if !opts.Exact {
			return groups[rootIDs[i]][0] < groups[rootIDs[j]][0]
		}
		return pathLess(groupBest(groups[rootIDs[i]], infos), groupBest(groups[rootIDs[j]], infos))
	})

	var combined query.Query
	for _, root := range rootIDs {
		members := groups[root]
		if opts.Exact {
			sort.SliceStable(members, func(i, j int) bool { return pathLess(infos[members[i]], infos[members[j]]) })
		}
		var group query.Query
		for _, idx := range members {
			if group == nil {
				group = infos[idx].steps
				continue
			}
			group = query.And{Left: group, Right: infos[idx].steps}
		}
		if combined == nil {
			combined = group
			continue
		}
		combined = query.Or{Left: combined, Right: group}
	}
	return combined, nil
}

func groupBest(members []int, infos []pathInfo) pathInfo {
	best := infos[members[0]]
	for _, m := range members[1:] {
		if pathLess(infos[m], best) {
			best = infos[m]
		}
	}
	return best
}

// sortPathInfos applies the step 3 ordering heuristic: ascending EF count,
// ascending referenced object-type cardinality, ascending DF count,
// ascending first-EF position.
func sortPathInfos(infos []pathInfo) {
	sort.SliceStable(infos, func(i, j int) bool { return pathLess(infos[i], infos[j]) })
}

func pathLess(a, b pathInfo) bool {
	if a.efCount != b.efCount {
		return a.efCount < b.efCount
	}
	if a.typeCard != b.typeCard {
		return a.typeCard < b.typeCard
	}
	if a.dfCount != b.dfCount {
		return a.dfCount < b.dfCount
	}
	return a.firstEF < b.firstEF
}
