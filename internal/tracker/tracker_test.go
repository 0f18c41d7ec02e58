package tracker

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func fixedClock() func() time.Time {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestTracker_Stats(t *testing.T) {
	tr := New().WithClock(fixedClock())
	tr.Log("q1", true, "")
	tr.Log("q2", false, "boom")
	tr.Log("q3", true, "")
	tr.Log("q4", false, "bad column")
	tr.Log("q5", true, "")

	assert.Equal(t, 5, tr.TotalCount())
	assert.InDelta(t, 60.0, tr.SuccessRate(), 1e-9)

	recent := tr.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "q4", recent[0].Query)
	assert.Equal(t, "q5", recent[1].Query)
	assert.True(t, recent[0].Timestamp.Before(recent[1].Timestamp))

	fails := tr.Failures()
	require.Len(t, fails, 2)
	assert.Equal(t, "q2", fails[0].Query)
	require.NotNil(t, fails[0].Error)
	assert.Equal(t, "boom", *fails[0].Error)

	tr.Clear()
	assert.Equal(t, 0, tr.TotalCount())
	assert.Equal(t, 0.0, tr.SuccessRate())
}

func TestTracker_EmptyAndBounds(t *testing.T) {
	tr := New()
	assert.Equal(t, 0.0, tr.SuccessRate())
	assert.Empty(t, tr.Recent(3))
	assert.Empty(t, tr.Failures())

	tr.Log("only", true, "")
	assert.Len(t, tr.Recent(10), 1)
	assert.Empty(t, tr.Recent(0))
	assert.Empty(t, tr.Recent(-1))
}

func TestTracker_LogFields(t *testing.T) {
	tr := New()
	ok := tr.Log("show first 5 rows", true, "")
	bad := tr.Log("nonsense", false, "Could not parse")

	assert.NotEmpty(t, ok.ID)
	assert.NotEqual(t, ok.ID, bad.ID)
	assert.Nil(t, ok.Error)
	require.NotNil(t, bad.Error)
	assert.Equal(t, "Could not parse", *bad.Error)
	assert.False(t, ok.Timestamp.IsZero())
}

func TestTracker_ReturnedSlicesAreCopies(t *testing.T) {
	tr := New()
	tr.Log("a", true, "")
	got := tr.Recent(1)
	got[0].Query = "mutated"
	assert.Equal(t, "a", tr.All()[0].Query)
}

func TestTracker_Export(t *testing.T) {
	tr := New().WithClock(fixedClock())
	tr.Log("a", true, "")
	tr.Log("b", false, "err")

	var js bytes.Buffer
	require.NoError(t, tr.Export(&js, FormatJSON))
	var fromJSON []Entry
	require.NoError(t, json.Unmarshal(js.Bytes(), &fromJSON))
	require.Len(t, fromJSON, 2)
	assert.Equal(t, "b", fromJSON[1].Query)

	var ym bytes.Buffer
	require.NoError(t, tr.Export(&ym, FormatYAML))
	var fromYAML []map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	require.Len(t, fromYAML, 2)
	assert.Equal(t, "err", fromYAML[1]["error"])

	assert.Error(t, tr.Export(&bytes.Buffer{}, Format("xml")))
}

func TestTracker_ExportEmpty(t *testing.T) {
	var js bytes.Buffer
	require.NoError(t, New().Export(&js, FormatJSON))
	assert.Equal(t, "[]\n", js.String())
}
