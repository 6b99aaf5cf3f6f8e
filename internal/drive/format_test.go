package drive_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyunamister/goproq/internal/drive"
	"github.com/gyunamister/goproq/internal/model"
)

func TestFormatResult_EmptyResult(t *testing.T) {
	tf := drive.NewTableFormatter()
	out := tf.FormatResult(&drive.Result{})
	require.Equal(t, "_No matching executions_", out)
}

func TestFormatResult_RendersMatchedRows(t *testing.T) {
	log := buildOrderCountFixture(t)
	q := orderCountQuery(model.OpGTE, 2)

	res, err := drive.Execute(q, log, drive.Options{})
	require.NoError(t, err)

	tf := drive.NewTableFormatter()
	out := tf.FormatResult(res)
	require.True(t, strings.Contains(out, "index"))
	require.True(t, strings.Contains(out, "order=2"))
	require.True(t, strings.Contains(out, "2 rows"))
}

func TestPrintSummary_DoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() {
		drive.PrintSummary(nil)
		drive.PrintSummary(&drive.Result{Length: 0})
		drive.PrintSummary(&drive.Result{Length: 2})
	})
}
