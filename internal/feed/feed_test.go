package feed

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster_parser/internal/analysis"
	"roster_parser/internal/classifier"
	"roster_parser/internal/storage"
)

const sampleRoster = `#3005 SA EFFECTIVE JAN03 ONLY
A    700  JFK 0645  DTW 0850
     701  DTW 0940  LGA 1150
TOTAL CREDIT 5.10TL 5.00BL 0.10CR 6.00FDP TAFB 7.20`

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subj, data})
	return nil
}

func requestJSON(t *testing.T, req analysis.Request) []byte {
	t.Helper()
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return b
}

func newHandler() *Handler {
	return &Handler{Thresholds: classifier.DefaultThresholds(), ResultSubject: "roster.results"}
}

func TestHandleRequest(t *testing.T) {
	h := newHandler()
	resp, err := h.HandleRequest(context.Background(), requestJSON(t, analysis.Request{
		FileName: "jan.txt", Text: sampleRoster, Month: 1, Year: 2026, Base: "NYC",
	}))
	require.NoError(t, err)
	require.NotNil(t, resp.Report)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "NYC", resp.Aggregate.BaseFilter)
	require.Len(t, resp.Trips, 1)
	assert.Equal(t, "3005", resp.Trips[0].Number)
	assert.Equal(t, 1, resp.Trips[0].Occurrences)
}

func TestHandleRequestErrors(t *testing.T) {
	h := newHandler()
	tests := []struct {
		name string
		data string
	}{
		{"not json", `roster please`},
		{"bad context", `{"text":"","month":0,"year":2026}`},
		{"bad base", `{"text":"","month":1,"year":2026,"base":"XYZ"}`},
		{"bad threshold", `{"text":"","month":1,"year":2026,"back":"25:00"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h.HandleRequest(context.Background(), []byte(tt.data))
			assert.Error(t, err)
			assert.NotEmpty(t, resp.Error)
			assert.Nil(t, resp.Report)
		})
	}
}

func TestHandleRepliesAndPublishes(t *testing.T) {
	h := newHandler()
	pub := &fakePublisher{}

	msg := &nats.Msg{
		Subject: "roster.analyze",
		Reply:   "_INBOX.1",
		Data:    requestJSON(t, analysis.Request{FileName: "jan.txt", Text: sampleRoster, Month: 1, Year: 2026}),
	}
	h.Handle(context.Background(), pub, msg)

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "_INBOX.1", pub.msgs[0].subject)
	assert.Equal(t, "roster.results", pub.msgs[1].subject)
	assert.Equal(t, pub.msgs[0].data, pub.msgs[1].data)

	var resp Response
	require.NoError(t, json.Unmarshal(pub.msgs[1].data, &resp))
	assert.Equal(t, "jan.txt", resp.FileName)

	assert.Equal(t, Stats{Received: 1, Analyzed: 1, Published: 1}, h.Stats())
}

func TestHandleBadMessageRepliesWithError(t *testing.T) {
	h := newHandler()
	pub := &fakePublisher{}

	h.Handle(context.Background(), pub, &nats.Msg{Subject: "roster.analyze", Reply: "_INBOX.2", Data: []byte(`{`)})

	require.Len(t, pub.msgs, 1, "errors are not published on the results subject")
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &resp))
	assert.NotEmpty(t, resp["error"])

	// No reply subject: nothing to send, but the worker keeps going.
	h.Handle(context.Background(), pub, &nats.Msg{Subject: "roster.analyze", Data: []byte(`{`)})
	assert.Len(t, pub.msgs, 1)
	assert.Equal(t, int64(2), h.Stats().Failed)
}

func TestHandlePublishFailure(t *testing.T) {
	h := newHandler()
	pub := &fakePublisher{err: errors.New("connection closed")}

	h.Handle(context.Background(), pub, &nats.Msg{
		Subject: "roster.analyze",
		Data:    requestJSON(t, analysis.Request{Text: sampleRoster, Month: 1, Year: 2026}),
	})
	s := h.Stats()
	assert.Equal(t, int64(1), s.Analyzed)
	assert.Zero(t, s.Published)
}

func TestHandleArchives(t *testing.T) {
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := newHandler()
	h.Store = db

	resp, err := h.HandleRequest(context.Background(), requestJSON(t, analysis.Request{
		FileName: "jan.txt", Text: sampleRoster, Month: 1, Year: 2026,
	}))
	require.NoError(t, err)
	require.NotEmpty(t, resp.RunID)

	runs, err := db.ListRuns(context.Background(), storage.ListParams{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, resp.RunID, runs[0].ID.String())
}

func TestWorkerRequiresSubject(t *testing.T) {
	w := &Worker{Handler: newHandler()}
	assert.Error(t, w.Run(context.Background(), nats.DefaultURL))
}
