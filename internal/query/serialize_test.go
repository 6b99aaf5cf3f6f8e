package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyunamister/goproq/internal/model"
)

func roundTrip(t *testing.T, q Query) Query {
	t.Helper()
	m := Serialize(q)
	parsed, err := Parse(m)
	require.NoError(t, err)
	return parsed
}

func TestSerializeRoundTrip_ActivityQuery(t *testing.T) {
	q := ActivityQuery{
		Object:   ObjectComponent{ObjectType: "order", Cardinality: &model.Cardinality{Op: model.OpGTE, N: 2}},
		Activity: ActivityComponent{Activities: []model.Activity{"Create PO"}, Kind: ActivityStart},
	}
	got := roundTrip(t, q)
	require.Equal(t, q, got)
}

func TestSerializeRoundTrip_ObjectTypeQuery(t *testing.T) {
	q := ObjectTypeQuery{Component: ObjectTypeComponent{ObjectType: "order", Cardinality: &model.Cardinality{Op: model.OpEQ, N: 3}}}
	got := roundTrip(t, q)
	require.Equal(t, q, got)
}

func TestSerializeRoundTrip_ControlFlowQuery(t *testing.T) {
	q := ControlFlowQuery{
		First:    ActivityQuery{Object: ObjectComponent{ObjectType: "item"}, Activity: ActivityComponent{Activities: []model.Activity{"Pick"}, Kind: ActivitySingle}},
		Second:   ActivityQuery{Object: ObjectComponent{ObjectType: "item"}, Activity: ActivityComponent{Activities: []model.Activity{"Pack"}, Kind: ActivitySingle}},
		Relation: DF,
		Constraint: ConstraintComponent{
			Relationship: &model.Cardinality{Op: model.OpEQ, N: 3},
		},
	}
	got := roundTrip(t, q)
	require.Equal(t, q, got)
}

func TestSerializeRoundTrip_Composed(t *testing.T) {
	left := ObjectTypeQuery{Component: ObjectTypeComponent{ObjectType: "order", Cardinality: &model.Cardinality{Op: model.OpGTE, N: 2}}}
	q := Not{Operand: And{Left: left, Right: AlwaysTrue{}}}
	got := roundTrip(t, q)
	require.Equal(t, q, got)
}

func TestSerializeRoundTrip_ObjectListQuery(t *testing.T) {
	q := ObjectListQuery{ObjectType: "order", Objects: []model.ObjectID{"o1", "o2"}, Quantifier: model.QuantifierAll}
	got := roundTrip(t, q)
	require.Equal(t, q, got)
}

func TestParse_UnknownType(t *testing.T) {
	_, err := Parse(map[string]interface{}{"type": "Bogus"})
	require.Error(t, err)
}
