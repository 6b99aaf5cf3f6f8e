package query

import (
	"github.com/gyunamister/goproq/internal/apperr"
	"github.com/gyunamister/goproq/internal/model"
)

// Serialize renders q as a tagged tree suitable for JSON display, matching
// the schema documented in spec.md §6:
//
//	ActivityQuery:     {type, components:{object_component, activity_component}}
//	ObjectTypeQuery:    {type, components:{object_type_component}}
//	ControlFlowQuery:   {type, components:{first, second, relation, constraint}}
//	And/Or/Not:         {type, left, right} / {type, operand}
//
// Every variant round-trips through Serialize -> Parse.
func Serialize(q Query) map[string]interface{} {
	switch v := q.(type) {
	case ActivityQuery:
		return map[string]interface{}{
			"type": "ActivityQuery",
			"components": map[string]interface{}{
				"object_component":   serializeObjectComponent(v.Object),
				"activity_component": serializeActivityComponent(v.Activity),
			},
		}
	case ObjectTypeQuery:
		return map[string]interface{}{
			"type": "ObjectTypeQuery",
			"components": map[string]interface{}{
				"object_type_component": serializeObjectTypeComponent(v.Component),
			},
		}
	case ControlFlowQuery:
		return map[string]interface{}{
			"type": "ControlFlowQuery",
			"components": map[string]interface{}{
				"first":      Serialize(v.First),
				"second":     Serialize(v.Second),
				"relation":   string(v.Relation),
				"constraint": serializeConstraint(v.Constraint),
				"edge_metric": serializeMetric(v.EdgeMetric),
			},
		}
	case ObjectListQuery:
		ids := make([]string, len(v.Objects))
		for i, o := range v.Objects {
			ids[i] = string(o)
		}
		return map[string]interface{}{
			"type": "ObjectListQuery",
			"components": map[string]interface{}{
				"object_type": string(v.ObjectType),
				"objects":     ids,
				"quantifier":  string(v.Quantifier),
			},
		}
	case AlwaysTrue:
		return map[string]interface{}{"type": "AlwaysTrue"}
	case And:
		return map[string]interface{}{"type": "AND", "left": Serialize(v.Left), "right": Serialize(v.Right)}
	case Or:
		return map[string]interface{}{"type": "OR", "left": Serialize(v.Left), "right": Serialize(v.Right)}
	case Not:
		return map[string]interface{}{"type": "NOT", "operand": Serialize(v.Operand)}
	default:
		return map[string]interface{}{"type": "Unknown"}
	}
}

func serializeObjectComponent(c ObjectComponent) map[string]interface{} {
	m := map[string]interface{}{"object_type": string(c.ObjectType)}
	if c.Cardinality != nil {
		m["op"] = string(c.Cardinality.Op)
		m["count"] = c.Cardinality.N
	}
	return m
}

func serializeActivityComponent(c ActivityComponent) map[string]interface{} {
	acts := make([]string, len(c.Activities))
	for i, a := range c.Activities {
		acts[i] = string(a)
	}
	m := map[string]interface{}{
		"activities":    acts,
		"activity_type": string(c.Kind),
	}
	if c.Kind == ActivityQuantified {
		m["quantifier"] = string(c.Quantifier)
	}
	if c.Kind == ActivityCardinality && c.Cardinality != nil {
		m["op"] = string(c.Cardinality.Op)
		m["count"] = c.Cardinality.N
	}
	if c.NodeMetric != nil {
		m["node_metric"] = serializeMetric(c.NodeMetric)
	}
	return m
}

func serializeObjectTypeComponent(c ObjectTypeComponent) map[string]interface{} {
	m := map[string]interface{}{"object_type": string(c.ObjectType)}
	if c.Cardinality != nil {
		m["op"] = string(c.Cardinality.Op)
		m["count"] = c.Cardinality.N
	}
	return m
}

func serializeConstraint(c ConstraintComponent) map[string]interface{} {
	m := map[string]interface{}{}
	if c.Object != nil {
		m["object_op"] = string(c.Object.Op)
		m["object_count"] = c.Object.N
	}
	if c.ObjectRelative != nil {
		m["object_relative_op"] = string(c.ObjectRelative.Op)
		m["object_relative_p"] = c.ObjectRelative.P
	}
	if c.Relationship != nil {
		m["relationship_op"] = string(c.Relationship.Op)
		m["relationship_count"] = c.Relationship.N
	}
	return m
}

func serializeMetric(t *model.MetricTriple) map[string]interface{} {
	if t == nil {
		return nil
	}
	return map[string]interface{}{"metric": t.Metric, "op": string(t.Op), "value": t.Value}
}

// Parse reverses Serialize. It returns a *apperr.Error (KindConversion) on
// any malformed or unrecognized tree.
func Parse(m map[string]interface{}) (Query, error) {
	t, _ := m["type"].(string)
	switch t {
	case "ActivityQuery":
		comps, ok := m["components"].(map[string]interface{})
		if !ok {
			return nil, apperr.New(apperr.KindConversion, "ActivityQuery missing components")
		}
		oc, err := parseObjectComponent(comps["object_component"])
		if err != nil {
			return nil, err
		}
		ac, err := parseActivityComponent(comps["activity_component"])
		if err != nil {
			return nil, err
		}
		return ActivityQuery{Object: oc, Activity: ac}, nil
	case "ObjectTypeQuery":
		comps, ok := m["components"].(map[string]interface{})
		if !ok {
			return nil, apperr.New(apperr.KindConversion, "ObjectTypeQuery missing components")
		}
		otc, err := parseObjectTypeComponent(comps["object_type_component"])
		if err != nil {
			return nil, err
		}
		return ObjectTypeQuery{Component: otc}, nil
	case "ControlFlowQuery":
		comps, ok := m["components"].(map[string]interface{})
		if !ok {
			return nil, apperr.New(apperr.KindConversion, "ControlFlowQuery missing components")
		}
		firstM, ok := comps["first"].(map[string]interface{})
		if !ok {
			return nil, apperr.New(apperr.KindConversion, "ControlFlowQuery missing first operand")
		}
		first, err := Parse(firstM)
		if err != nil {
			return nil, err
		}
		firstAQ, ok := first.(ActivityQuery)
		if !ok {
			return nil, apperr.New(apperr.KindConversion, "ControlFlowQuery first operand must be ActivityQuery")
		}
		secondM, ok := comps["second"].(map[string]interface{})
		if !ok {
			return nil, apperr.New(apperr.KindConversion, "ControlFlowQuery missing second operand")
		}
		second, err := Parse(secondM)
		if err != nil {
			return nil, err
		}
		secondAQ, ok := second.(ActivityQuery)
		if !ok {
			return nil, apperr.New(apperr.KindConversion, "ControlFlowQuery second operand must be ActivityQuery")
		}
		rel, _ := comps["relation"].(string)
		if rel != string(DF) && rel != string(EF) {
			return nil, apperr.New(apperr.KindConversion, "ControlFlowQuery unknown relation %q", rel)
		}
		constraint := parseConstraint(comps["constraint"])
		metric := parseMetric(comps["edge_metric"])
		return ControlFlowQuery{First: firstAQ, Second: secondAQ, Relation: TemporalRelation(rel), Constraint: constraint, EdgeMetric: metric}, nil
	case "ObjectListQuery":
		comps, ok := m["components"].(map[string]interface{})
		if !ok {
			return nil, apperr.New(apperr.KindConversion, "ObjectListQuery missing components")
		}
		ot, _ := comps["object_type"].(string)
		quant, _ := comps["quantifier"].(string)
		rawIDs, _ := comps["objects"].([]string)
		ids := make([]model.ObjectID, len(rawIDs))
		for i, s := range rawIDs {
			ids[i] = model.ObjectID(s)
		}
		return ObjectListQuery{ObjectType: model.ObjectType(ot), Objects: ids, Quantifier: model.Quantifier(quant)}, nil
	case "AlwaysTrue":
		return AlwaysTrue{}, nil
	case "AND":
		l, r, err := parseBinary(m)
		if err != nil {
			return nil, err
		}
		return And{Left: l, Right: r}, nil
	case "OR":
		l, r, err := parseBinary(m)
		if err != nil {
			return nil, err
		}
		return Or{Left: l, Right: r}, nil
	case "NOT":
		op, ok := m["operand"].(map[string]interface{})
		if !ok {
			return nil, apperr.New(apperr.KindConversion, "NOT missing operand")
		}
		q, err := Parse(op)
		if err != nil {
			return nil, err
		}
		return Not{Operand: q}, nil
	default:
		return nil, apperr.New(apperr.KindConversion, "unknown query type %q", t)
	}
}

func parseBinary(m map[string]interface{}) (Query, Query, error) {
	lm, ok := m["left"].(map[string]interface{})
	if !ok {
		return nil, nil, apperr.New(apperr.KindConversion, "%s missing left operand", m["type"])
	}
	rm, ok := m["right"].(map[string]interface{})
	if !ok {
		return nil, nil, apperr.New(apperr.KindConversion, "%s missing right operand", m["type"])
	}
	l, err := Parse(lm)
	if err != nil {
		return nil, nil, err
	}
	r, err := Parse(rm)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func parseObjectComponent(raw interface{}) (ObjectComponent, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return ObjectComponent{}, apperr.New(apperr.KindConversion, "missing object_component")
	}
	ot, _ := m["object_type"].(string)
	c := ObjectComponent{ObjectType: model.ObjectType(ot)}
	if op, ok := m["op"].(string); ok {
		n := toInt(m["count"])
		c.Cardinality = &model.Cardinality{Op: model.CompareOp(op), N: n}
	}
	return c, nil
}

func parseActivityComponent(raw interface{}) (ActivityComponent, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return ActivityComponent{}, apperr.New(apperr.KindConversion, "missing activity_component")
	}
	kind, _ := m["activity_type"].(string)
	if kind == "" {
		return ActivityComponent{}, apperr.New(apperr.KindConversion, "activity_component missing activity_type")
	}
	var acts []model.Activity
	if raw, ok := m["activities"].([]string); ok {
		for _, a := range raw {
			acts = append(acts, model.Activity(a))
		}
	} else if raw, ok := m["activities"].([]interface{}); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				acts = append(acts, model.Activity(s))
			}
		}
	}
	c := ActivityComponent{Activities: acts, Kind: ActivityKind(kind)}
	if q, ok := m["quantifier"].(string); ok {
		c.Quantifier = model.Quantifier(q)
	}
	if op, ok := m["op"].(string); ok {
		n := toInt(m["count"])
		c.Cardinality = &model.Cardinality{Op: model.CompareOp(op), N: n}
	}
	c.NodeMetric = parseMetric(m["node_metric"])
	return c, nil
}

func parseObjectTypeComponent(raw interface{}) (ObjectTypeComponent, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return ObjectTypeComponent{}, apperr.New(apperr.KindConversion, "missing object_type_component")
	}
	ot, _ := m["object_type"].(string)
	c := ObjectTypeComponent{ObjectType: model.ObjectType(ot)}
	if op, ok := m["op"].(string); ok {
		n := toInt(m["count"])
		c.Cardinality = &model.Cardinality{Op: model.CompareOp(op), N: n}
	}
	return c, nil
}

func parseConstraint(raw interface{}) ConstraintComponent {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return ConstraintComponent{}
	}
	var c ConstraintComponent
	if op, ok := m["object_op"].(string); ok {
		c.Object = &model.Cardinality{Op: model.CompareOp(op), N: toInt(m["object_count"])}
	}
	if op, ok := m["object_relative_op"].(string); ok {
		p, _ := m["object_relative_p"].(float64)
		c.ObjectRelative = &model.RelativeCardinality{Op: model.CompareOp(op), P: p}
	}
	if op, ok := m["relationship_op"].(string); ok {
		c.Relationship = &model.Cardinality{Op: model.CompareOp(op), N: toInt(m["relationship_count"])}
	}
	return c
}

func parseMetric(raw interface{}) *model.MetricTriple {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	name, _ := m["metric"].(string)
	op, _ := m["op"].(string)
	val, _ := m["value"].(float64)
	if name == "" {
		return nil
	}
	return &model.MetricTriple{Metric: name, Op: model.CompareOp(op), Value: val}
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
