package drive_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gyunamister/goproq/internal/drive"
	"github.com/gyunamister/goproq/internal/index"
	"github.com/gyunamister/goproq/internal/model"
	"github.com/gyunamister/goproq/internal/ocel"
	"github.com/gyunamister/goproq/internal/ocel/oceltest"
)

func buildExportFixture(t *testing.T) (*oceltest.Fixture, *index.Log) {
	t.Helper()
	events := []oceltest.EventSpec{
		{ID: "e1", Activity: "Create PO", End: baseTime(1), Objects: map[model.ObjectType][]model.ObjectID{"order": {"o1"}}},
		{ID: "e2", Activity: "Approve", End: baseTime(2), Objects: map[model.ObjectType][]model.ObjectID{"order": {"o1"}}},
		{ID: "e3", Activity: "Create PO", End: baseTime(3), Objects: map[model.ObjectType][]model.ObjectID{"order": {"o2"}}},
	}
	exec0 := oceltest.ExecutionSpec{
		Events:  []model.EventID{"e1", "e2"},
		Edges:   [][2]model.EventID{{"e1", "e2"}},
		Objects: []ocel.ObjectRef{{Type: "order", ID: "o1"}},
	}
	exec1 := oceltest.ExecutionSpec{
		Events:  []model.EventID{"e3"},
		Objects: []ocel.ObjectRef{{Type: "order", ID: "o2"}},
	}
	fx := oceltest.New([]model.ObjectType{"order"}, events, []oceltest.ExecutionSpec{exec0, exec1})
	l, err := index.Build(fx)
	require.NoError(t, err)
	return fx, l
}

func TestExportSubset_FiltersToMatchedExecutions(t *testing.T) {
	fx, log := buildExportFixture(t)

	out := drive.ExportSubset(fx, log, []int{0})
	require.Len(t, out.Events, 2)
	require.Equal(t, model.EventID("e1"), out.Events[0].ID)
	require.Equal(t, model.EventID("e2"), out.Events[1].ID)
	require.Len(t, out.Objects, 1)
	require.Equal(t, model.ObjectID("o1"), out.Objects[0].ID)
	require.Empty(t, out.Events[0].Attributes)
	require.Nil(t, out.Metadata)

	_, err := time.Parse(time.RFC3339, out.Events[0].Timestamp)
	require.NoError(t, err)
}

func TestExportSubset_NoMatchedExecutions(t *testing.T) {
	fx, log := buildExportFixture(t)

	out := drive.ExportSubset(fx, log, nil)
	require.Empty(t, out.Events)
	require.Empty(t, out.Objects)
}
