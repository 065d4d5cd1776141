// Package feed analyzes roster uploads delivered over NATS.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"roster_parser/internal/analysis"
	"roster_parser/internal/classifier"
	"roster_parser/internal/logger"
	"roster_parser/internal/storage"
)

// Publisher sends a payload on a subject. *nats.Conn implements it.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// Response is the payload sent back for every request.
type Response struct {
	RunID string `json:"run_id,omitempty"`
	Error string `json:"error,omitempty"`
	*analysis.Report
}

// Stats counts handled messages.
type Stats struct {
	Received  int64 `json:"received"`
	Analyzed  int64 `json:"analyzed"`
	Failed    int64 `json:"failed"`
	Published int64 `json:"published"`
}

// Handler turns analyze requests into reports.
type Handler struct {
	Thresholds    classifier.CommuteThresholds
	ResultSubject string
	Store         storage.Store
	Facts         storage.FactSink

	received, analyzed, failed, published atomic.Int64
}

// Stats returns a snapshot of the counters.
func (h *Handler) Stats() Stats {
	return Stats{
		Received:  h.received.Load(),
		Analyzed:  h.analyzed.Load(),
		Failed:    h.failed.Load(),
		Published: h.published.Load(),
	}
}

// HandleRequest decodes one analyze request and runs it. The returned
// response is always set; err is non-nil when the request failed.
func (h *Handler) HandleRequest(ctx context.Context, data []byte) (Response, error) {
	var req analysis.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse(fmt.Errorf("decode request: %w", err))
	}
	opts, err := req.Options(h.Thresholds)
	if err != nil {
		return errorResponse(err)
	}
	report, err := analysis.AnalyzeFile(req.Input(), opts)
	if err != nil {
		return errorResponse(err)
	}

	resp := Response{Report: report}
	if h.Store != nil || h.Facts != nil {
		run, err := storage.Archive(ctx, h.Store, h.Facts, report)
		if err != nil {
			logger.Error("archive run", "file", report.FileName, "err", err)
		} else if h.Store != nil {
			resp.RunID = run.ID.String()
		}
	}
	return resp, nil
}

func errorResponse(err error) (Response, error) {
	return Response{Error: err.Error()}, err
}

// Handle processes one message. The response goes to msg.Reply when set;
// successful reports are also published on ResultSubject. Failures are
// logged and never stop the worker.
func (h *Handler) Handle(ctx context.Context, pub Publisher, msg *nats.Msg) {
	h.received.Add(1)

	resp, err := h.HandleRequest(ctx, msg.Data)
	if err != nil {
		h.failed.Add(1)
		logger.Warn("rejected roster request", "subject", msg.Subject, "err", err)
	} else {
		h.analyzed.Add(1)
		logger.Info("analyzed roster", "file", resp.FileName, "trips", len(resp.Trips), "run", resp.RunID)
	}

	out, merr := json.Marshal(resp)
	if merr != nil {
		logger.Error("marshal response", "err", merr)
		return
	}

	if msg.Reply != "" {
		if perr := pub.Publish(msg.Reply, out); perr != nil {
			logger.Error("reply", "subject", msg.Reply, "err", perr)
		}
	}
	if err == nil && h.ResultSubject != "" {
		if perr := pub.Publish(h.ResultSubject, out); perr != nil {
			logger.Error("publish result", "subject", h.ResultSubject, "err", perr)
			return
		}
		h.published.Add(1)
	}
}

// Worker subscribes a Handler to a NATS subject in a queue group.
type Worker struct {
	Subject string
	Queue   string
	Handler *Handler
}

// Run connects to url and processes messages until ctx is cancelled, then
// drains the connection.
func (w *Worker) Run(ctx context.Context, url string, opts ...nats.Option) error {
	if w.Subject == "" {
		return errors.New("feed: empty subject")
	}

	opts = append([]nats.Option{
		nats.Name("roster-feed"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}, opts...)

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}

	sub, err := nc.QueueSubscribe(w.Subject, w.Queue, func(msg *nats.Msg) {
		w.Handler.Handle(ctx, nc, msg)
	})
	if err != nil {
		nc.Close()
		return fmt.Errorf("subscribe %s: %w", w.Subject, err)
	}
	logger.Info("roster feed listening", "url", nc.ConnectedUrl(), "subject", sub.Subject, "queue", sub.Queue,
		"results", w.Handler.ResultSubject)

	<-ctx.Done()

	if err := nc.Drain(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	s := w.Handler.Stats()
	logger.Info("roster feed stopped", "received", s.Received, "analyzed", s.Analyzed, "failed", s.Failed)
	return nil
}
