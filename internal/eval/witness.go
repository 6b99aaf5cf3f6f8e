package eval

import "github.com/gyunamister/goproq/internal/model"

// TemporalPair is one (o1, o2) entry of a ControlFlowQuery's temporal
// mapping, with the event pairs that realize it.
type TemporalPair struct {
	O1, O2 model.ObjectID
	Events [][2]model.EventID
}

// Witness is Φ's second output channel: which objects and edges satisfied
// a query, mirroring the AST shape so a caller can render it alongside
// the query that produced it.
type Witness struct {
	// SatisfiedObjects holds, per object type, the object ids that
	// satisfied this node (ActivityQuery/ObjectTypeQuery/ObjectListQuery).
	SatisfiedObjects map[model.ObjectType][]model.ObjectID

	// ContributingEvents holds, per satisfying object, the event ids that
	// witnessed its satisfaction (e.g. the single/start/end event).
	ContributingEvents map[model.ObjectID][]model.EventID

	// TemporalMapping holds the ControlFlowQuery temporal mapping that
	// satisfied the constraint (nil for non-control-flow nodes).
	TemporalMapping []TemporalPair

	// Negated marks a NOT witness: SatisfiedObjects here is the
	// complement of the operand's satisfied set.
	Negated bool

	// Children holds the sub-witnesses of a composed (AND/OR/NOT) query,
	// in operand order.
	Children []*Witness
}

func newWitness() *Witness {
	return &Witness{
		SatisfiedObjects:   make(map[model.ObjectType][]model.ObjectID),
		ContributingEvents: make(map[model.ObjectID][]model.EventID),
	}
}
