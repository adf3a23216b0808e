package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/nats-io/nats.go"
)

func TestNoopPublisher_Publish(t *testing.T) {
	pub := &NoopPublisher{}
	err := pub.Publish(context.Background(), TopicRunStarted, RunStarted{})
	if err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestNoopPublisher_ImplementsPublisher(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	pub := &LogPublisher{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	err := pub.Publish(context.Background(), TopicMasterAdvanced, MasterAdvanced{RunID: "run-1", Tab: "Master_A", From: "H", To: "I"})
	if err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "topic=sheetsync.master.advanced") || !strings.Contains(out, `\"tab\":\"Master_A\"`) {
		t.Errorf("unexpected log output: %s", out)
	}

	buf.Reset()
	quiet := &LogPublisher{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	if err := quiet.Publish(context.Background(), TopicRunStarted, RunStarted{}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("info-level logger should not log events: %s", buf.String())
	}
}

func TestNATSPublisher_ImplementsPublisher(t *testing.T) {
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestUnitTopic(t *testing.T) {
	if got := UnitTopic(model.UnitResult{Status: model.StatusFailed}); got != TopicUnitFailed {
		t.Errorf("failed unit topic = %q", got)
	}
	for _, s := range []model.Status{model.StatusOK, model.StatusSkipped} {
		if got := UnitTopic(model.UnitResult{Status: s}); got != TopicUnitDone {
			t.Errorf("%s unit topic = %q", s, got)
		}
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicMasterAdvanced, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	event := MasterAdvanced{RunID: "run-1", Tab: "Master_A", From: "H", To: "I", Header: "2024-06-03"}
	if err := pub.Publish(context.Background(), TopicMasterAdvanced, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.conn.Flush()

	select {
	case msg := <-ch:
		var got MasterAdvanced
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got != event {
			t.Errorf("got %+v, want %+v", got, event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_UnitEventPayload(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	u := model.UnitResult{Phase: model.PhaseExtract, Unit: "경쟁사_A", Status: model.StatusFailed, Fatal: true, Error: "sheet tab not found: 경쟁사_A"}
	if err := pub.Publish(context.Background(), UnitTopic(u), UnitEvent{RunID: "run-2", Result: u}); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	// Close flushes.
	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	select {
	case msg := <-ch:
		if msg.Topic != TopicUnitFailed {
			t.Errorf("topic = %q, want %q", msg.Topic, TopicUnitFailed)
		}
		var got UnitEvent
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.RunID != "run-2" || got.Result.Unit != u.Unit || !got.Result.Fatal {
			t.Errorf("unexpected payload: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for unit event")
	}
}
