package convert

import (
	"sort"

	"github.com/gyunamister/goproq/internal/apperr"
	"github.com/gyunamister/goproq/internal/query"
)

// NodeType distinguishes a diagram's query nodes from its composition
// nodes.
type NodeType string

const (
	NodeActivityQuery    NodeType = "activityQuery"
	NodeObjectTypeQuery  NodeType = "objectTypeQuery"
	NodeControlFlowQuery NodeType = "controlFlowQuery"
	NodeLogicalOperator  NodeType = "logicalOperator"
)

// LogicalOp is a logicalOperator node's composition kind.
type LogicalOp string

const (
	LogicalAnd LogicalOp = "AND"
	LogicalOr  LogicalOp = "OR"
	LogicalNot LogicalOp = "NOT"
)

// Node is one diagram node. For query nodes, Data is the tagged-tree
// schema query.Serialize produces (`{type, components}`) — the same
// schema every variant round-trips through (spec.md §6). For a
// logicalOperator node, Data carries `{"operator": "AND"|"OR"|"NOT"}`.
type Node struct {
	ID   string
	Type NodeType
	Data map[string]interface{}
}

// Edge is a directed diagram edge. Direction may point operand->operator
// or operator->operand; ConvertDiagram detects the dominant direction.
type Edge struct {
	Source, Target string
}

// Diagram is a graphical query: typed nodes and directed edges between
// them (spec.md §4.C).
type Diagram struct {
	Nodes []Node
	Edges []Edge
}

// ConvertDiagram translates a graphical query diagram into the typed
// AST, per spec.md §4.C's rules for root selection, dominant-direction
// detection, isolated-operator combination, arity and the AND fallback.
func ConvertDiagram(d Diagram, opts Options) (query.Query, error) {
	if len(d.Nodes) == 0 {
		return nil, apperr.New(apperr.KindConversion, "diagram has no nodes")
	}

	nodeQueries := make(map[string]query.Query)
	logicalOps := make(map[string]LogicalOp)
	var queryOrder []string

	for _, n := range d.Nodes {
		if n.Type == NodeLogicalOperator {
			logicalOps[n.ID] = LogicalOp(stringField(n.Data, "operator", string(LogicalAnd)))
			continue
		}
		q, err := convertDiagramNode(n, opts)
		if err != nil {
			return nil, err
		}
		nodeQueries[n.ID] = q
		queryOrder = append(queryOrder, n.ID)
	}

	if len(d.Nodes) == 1 && len(d.Edges) == 0 {
		if q, ok := nodeQueries[d.Nodes[0].ID]; ok {
			return q, nil
		}
		return nil, apperr.New(apperr.KindConversion, "a lone logicalOperator node cannot be converted")
	}

	if len(logicalOps) == 0 {
		return andFallback(nodeQueries, queryOrder)
	}

	edgesToLogical, edgesFromLogical := 0, 0
	for _, e := range d.Edges {
		if _, ok := logicalOps[e.Target]; ok {
			edgesToLogical++
		}
		if _, ok := logicalOps[e.Source]; ok {
			edgesFromLogical++
		}
	}

	inputs := make(map[string][]string, len(logicalOps))
	connected := make(map[string]bool)
	if edgesToLogical >= edgesFromLogical {
		// dominant pattern: operands -> operator.
		for _, e := range d.Edges {
			if _, ok := logicalOps[e.Target]; ok {
				inputs[e.Target] = append(inputs[e.Target], e.Source)
				connected[e.Target] = true
			}
		}
	} else {
		// reverse pattern: operator -> operands.
		for _, e := range d.Edges {
			if _, ok := logicalOps[e.Source]; ok {
				inputs[e.Source] = append(inputs[e.Source], e.Target)
				connected[e.Source] = true
			}
		}
	}

	if len(connected) == 0 {
		// Isolated logical operators combine otherwise-unconnected query
		// nodes using the first operator's kind, by diagram id.
		if len(logicalOps) > 0 && len(queryOrder) > 1 {
			op := logicalOps[firstSorted(logicalOps)]
			return composeAll(nodeQueries, queryOrder, op)
		}
		return andFallback(nodeQueries, queryOrder)
	}

	roots := make(map[string]bool, len(connected))
	for id := range connected {
		roots[id] = true
	}
	for _, ins := range inputs {
		for _, in := range ins {
			delete(roots, in)
		}
	}
	var rootID string
	if len(roots) == 0 {
		rootID = firstSorted(connected)
	} else {
		if len(roots) > 1 {
			opts.warn("diagram has %d root operators; choosing %q, the first by diagram id", len(roots), firstSorted(roots))
		}
		rootID = firstSorted(roots)
	}

	result, present, err := buildTree(rootID, nodeQueries, logicalOps, inputs)
	if err != nil {
		return nil, err
	}
	if !present {
		return andFallback(nodeQueries, queryOrder)
	}
	return result, nil
}

func convertDiagramNode(n Node, opts Options) (query.Query, error) {
	q, err := query.Parse(n.Data)
	if err != nil {
		return nil, err
	}
	if err := validateNames(q, opts); err != nil {
		return nil, err
	}
	return q, nil
}

func validateNames(q query.Query, opts Options) error {
	if !opts.Strict || opts.Resolver == nil {
		return nil
	}
	switch v := q.(type) {
	case query.ActivityQuery:
		return checkResolved(v.Object.ObjectType, v.Activity.Activities, opts)
	case query.ObjectTypeQuery:
		return checkResolved(v.Component.ObjectType, nil, opts)
	case query.ControlFlowQuery:
		if err := validateNames(v.First, opts); err != nil {
			return err
		}
		return validateNames(v.Second, opts)
	case query.And:
		if err := validateNames(v.Left, opts); err != nil {
			return err
		}
		return validateNames(v.Right, opts)
	case query.Or:
		if err := validateNames(v.Left, opts); err != nil {
			return err
		}
		return validateNames(v.Right, opts)
	case query.Not:
		return validateNames(v.Operand, opts)
	default:
		return nil
	}
}

// buildTree recursively composes a logicalOperator subtree. present=false
// means the subtree had no valid operands and is elided (spec.md §4.C:
// "Empty AND/OR operand sets return no result").
func buildTree(id string, nodeQueries map[string]query.Query, logicalOps map[string]LogicalOp, inputs map[string][]string) (query.Query, bool, error) {
	if q, ok := nodeQueries[id]; ok {
		return q, true, nil
	}
	op, ok := logicalOps[id]
	if !ok {
		return nil, false, apperr.New(apperr.KindConversion, "diagram edge references unknown node %q", id)
	}

	in := inputs[id]
	switch len(in) {
	case 0:
		return nil, false, nil

	case 1:
		operand, present, err := buildTree(in[0], nodeQueries, logicalOps, inputs)
		if err != nil || !present {
			return nil, false, err
		}
		if op == LogicalNot {
			return query.Not{Operand: operand}, true, nil
		}
		return operand, true, nil

	case 2:
		if op == LogicalNot {
			return nil, false, apperr.New(apperr.KindConversion, "NOT node %q has %d operands, expected 1", id, len(in))
		}
		left, lok, err := buildTree(in[0], nodeQueries, logicalOps, inputs)
		if err != nil {
			return nil, false, err
		}
		right, rok, err := buildTree(in[1], nodeQueries, logicalOps, inputs)
		if err != nil {
			return nil, false, err
		}
		switch {
		case !lok && !rok:
			return nil, false, nil
		case !lok:
			return right, true, nil
		case !rok:
			return left, true, nil
		}
		if op == LogicalOr {
			return query.Or{Left: left, Right: right}, true, nil
		}
		return query.And{Left: left, Right: right}, true, nil

	default:
		if op == LogicalNot {
			return nil, false, apperr.New(apperr.KindConversion, "NOT node %q has %d operands, expected 1", id, len(in))
		}
		var operands []query.Query
		for _, childID := range in {
			child, present, err := buildTree(childID, nodeQueries, logicalOps, inputs)
			if err != nil {
				return nil, false, err
			}
			if present {
				operands = append(operands, child)
			}
		}
		if len(operands) == 0 {
			return nil, false, nil
		}
		if len(operands) == 1 {
			return operands[0], true, nil
		}
		return foldLeft(operands, op), true, nil
	}
}

func foldLeft(operands []query.Query, op LogicalOp) query.Query {
	result := operands[0]
	for _, o := range operands[1:] {
		if op == LogicalOr {
			result = query.Or{Left: result, Right: o}
		} else {
			result = query.And{Left: result, Right: o}
		}
	}
	return result
}

func andFallback(nodeQueries map[string]query.Query, order []string) (query.Query, error) {
	return composeAll(nodeQueries, order, LogicalAnd)
}

func composeAll(nodeQueries map[string]query.Query, order []string, op LogicalOp) (query.Query, error) {
	if len(order) == 0 {
		return nil, apperr.New(apperr.KindConversion, "diagram has no query nodes to compose")
	}
	result := nodeQueries[order[0]]
	for _, id := range order[1:] {
		if op == LogicalOr {
			result = query.Or{Left: result, Right: nodeQueries[id]}
		} else {
			result = query.And{Left: result, Right: nodeQueries[id]}
		}
	}
	return result, nil
}

func stringField(m map[string]interface{}, key, def string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return def
}

func firstSorted[T any](m map[string]T) string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
