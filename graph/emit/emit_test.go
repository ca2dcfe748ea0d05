package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitter_Text(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{
		RunID:  "run-001",
		Step:   2,
		NodeID: "generate_candidates",
		Msg:    "node completed",
	})

	got := buf.String()
	want := "[node completed] runID=run-001 step=2 nodeID=generate_candidates\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLogEmitter_TextWithMeta(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{
		RunID: "run-001",
		Msg:   "run failed",
		Meta:  map[string]interface{}{"cause": "boom"},
	})

	got := buf.String()
	if !strings.Contains(got, `meta={"cause":"boom"}`) {
		t.Errorf("expected meta in output, got %q", got)
	}
}

func TestLogEmitter_JSON(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{
		RunID:  "run-001",
		Step:   1,
		NodeID: "parse_preferences",
		Msg:    "node completed",
		Meta:   map[string]interface{}{"attempt": 1},
	})

	var decoded struct {
		RunID  string                 `json:"runID"`
		Step   int                    `json:"step"`
		NodeID string                 `json:"nodeID"`
		Msg    string                 `json:"msg"`
		Meta   map[string]interface{} `json:"meta"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.RunID != "run-001" || decoded.Step != 1 || decoded.NodeID != "parse_preferences" {
		t.Errorf("unexpected decoded event: %+v", decoded)
	}
	if decoded.Meta["attempt"] != float64(1) {
		t.Errorf("expected attempt meta, got %v", decoded.Meta)
	}
}

func TestBufferedEmitter(t *testing.T) {
	emitter := NewBufferedEmitter()

	emitter.Emit(Event{RunID: "r", Msg: "run started"})
	emitter.Emit(Event{RunID: "r", Step: 1, NodeID: "a", Msg: "node completed"})

	events := emitter.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Msg != "run started" || events[1].NodeID != "a" {
		t.Errorf("unexpected events: %+v", events)
	}

	// Events returns a copy, not the live buffer.
	events[0].Msg = "tampered"
	if emitter.Events()[0].Msg != "run started" {
		t.Error("Events exposed the internal buffer")
	}

	emitter.Reset()
	if len(emitter.Events()) != 0 {
		t.Error("expected empty buffer after Reset")
	}
}

func TestNullEmitter(t *testing.T) {
	emitter := NewNullEmitter()
	// Must not panic.
	emitter.Emit(Event{RunID: "r", Msg: "anything"})
}
