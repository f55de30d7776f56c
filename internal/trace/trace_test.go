package trace

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSON_ByteForByte(t *testing.T) {
	tr1 := ExecutionTrace{
		Backends: "spirv+hlsl",
		Events: []Event{
			{Kind: EventContainerWritten, Index: 0, File: "a.vert", Output: "out/a.vert.refresh"},
			{Kind: EventFileSkipped, Index: 2, File: "c.frag", Reason: "UpstreamFailed"},
			{Kind: EventStageDetected, Index: 0, File: "a.vert", Stage: "vertex"},
			{Kind: EventFileFailed, Index: 1, File: "b.txt", Reason: "UnsupportedStage"},
		},
	}
	tr2 := ExecutionTrace{
		Backends: "spirv+hlsl",
		Events: []Event{
			{Kind: EventFileFailed, Index: 1, File: "b.txt", Reason: "UnsupportedStage"},
			{Kind: EventStageDetected, Index: 0, File: "a.vert", Stage: "vertex"},
			{Kind: EventFileSkipped, Index: 2, File: "c.frag", Reason: "UpstreamFailed"},
			{Kind: EventContainerWritten, Index: 0, File: "a.vert", Output: "out/a.vert.refresh"},
		},
	}

	b1, err := tr1.CanonicalJSON()
	require.NoError(t, err)
	b2, err := tr2.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))

	want := `{"backends":"spirv+hlsl","events":[` +
		`{"kind":"StageDetected","index":0,"file":"a.vert","stage":"vertex"},` +
		`{"kind":"ContainerWritten","index":0,"file":"a.vert","output":"out/a.vert.refresh"},` +
		`{"kind":"FileFailed","index":1,"file":"b.txt","reason":"UnsupportedStage"},` +
		`{"kind":"FileSkipped","index":2,"file":"c.frag","reason":"UpstreamFailed"}]}`
	assert.Equal(t, want, string(b1))

	// The caller's slice keeps its order.
	assert.Equal(t, EventContainerWritten, tr1.Events[0].Kind)
}

func TestDigest_FollowsCanonicalBytes(t *testing.T) {
	a := ExecutionTrace{Backends: "spirv", Events: []Event{
		{Kind: EventContainerWritten, File: "a.comp", Output: "a.comp.refresh"},
		{Kind: EventStageDetected, File: "a.comp", Stage: "compute"},
	}}
	b := ExecutionTrace{Backends: "spirv", Events: []Event{a.Events[1], a.Events[0]}}

	ab, err := a.CanonicalJSON()
	require.NoError(t, err)
	bb, err := b.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t, Digest(ab), Digest(bb))
	assert.Len(t, Digest(ab), 64)

	c := ExecutionTrace{Backends: "spirv+hlsl", Events: a.Events}
	cb, err := c.CanonicalJSON()
	require.NoError(t, err)
	assert.NotEqual(t, Digest(ab), Digest(cb))
}

func TestValidate(t *testing.T) {
	cases := []Event{
		{File: "a.vert"},
		{Kind: EventStageDetected},
		{Kind: EventStageDetected, File: "a", Index: -1},
		{Kind: EventFileFailed, File: "a"},
	}
	for _, e := range cases {
		tr := ExecutionTrace{Events: []Event{e}}
		_, err := tr.CanonicalJSON()
		assert.Error(t, err, "%+v", e)
	}
	var nilTrace *ExecutionTrace
	assert.Error(t, nilTrace.Validate())
}

func TestRecorder_ConcurrentAndSnapshot(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Record(Event{Kind: EventStageDetected, Index: i, File: "f"})
		}(i)
	}
	wg.Wait()

	tr := r.Trace("spirv")
	require.Len(t, tr.Events, 20)
	for i, e := range tr.Events {
		assert.Equal(t, i, e.Index)
	}

	snap := r.Snapshot()
	snap[0].File = "mutated"
	assert.Equal(t, "f", r.Snapshot()[0].File)
}

type panicSink struct{}

func (panicSink) Record(Event) { panic("boom") }

func TestSafeRecord_Inert(t *testing.T) {
	assert.NotPanics(t, func() {
		SafeRecord(nil, Event{})
		SafeRecord(panicSink{}, Event{Kind: EventStageDetected, File: "a"})
		SafeRecord(NopSink{}, Event{})
	})
}
