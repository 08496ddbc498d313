package deltecho

import (
	"context"
	"encoding/json"
	"testing"
)

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(fixedClockConfig())
	id := e.CreateSession(ctx, "conv-1", nil)

	e.ProcessMessage(ctx, id, userMessage("we planted tomatoes in the garden"))
	e.ProcessMessage(ctx, id, userMessage("I love how the garden looks now"))
	e.ProcessMessage(ctx, id, userMessage("Could you remind me to water them?"))
	e.Tick(ctx, id)

	source, _ := e.SessionState(id)

	blob, err := e.ExportState(id)
	if err != nil {
		t.Fatalf("ExportState failed: %v", err)
	}

	restoredEngine := NewEngine(fixedClockConfig())
	restoredID := restoredEngine.CreateSession(ctx, "other", nil)
	if err := restoredEngine.ImportState(restoredID, blob); err != nil {
		t.Fatalf("ImportState failed: %v", err)
	}

	restored, _ := restoredEngine.SessionState(restoredID)

	if restored.Phase != source.Phase {
		t.Errorf("phase lost: %d vs %d", restored.Phase, source.Phase)
	}
	if restored.Tone != source.Tone {
		t.Errorf("tone lost: %+v vs %+v", restored.Tone, source.Tone)
	}
	if restored.Session.ConversationID != "conv-1" {
		t.Errorf("conversation ID not carried over, got %q", restored.Session.ConversationID)
	}

	wantUtts := source.ShortTerm.All()
	gotUtts := restored.ShortTerm.All()
	if len(gotUtts) != len(wantUtts) {
		t.Fatalf("short-term length lost: %d vs %d", len(gotUtts), len(wantUtts))
	}
	for i := range wantUtts {
		if gotUtts[i].Content != wantUtts[i].Content ||
			gotUtts[i].Role != wantUtts[i].Role ||
			gotUtts[i].Phase != wantUtts[i].Phase ||
			!gotUtts[i].Timestamp.Equal(wantUtts[i].Timestamp) {
			t.Errorf("utterance %d diverged: %+v vs %+v", i, gotUtts[i], wantUtts[i])
		}
	}

	if restored.Topics.Len() != source.Topics.Len() {
		t.Errorf("topic count lost: %d vs %d", restored.Topics.Len(), source.Topics.Len())
	}
	want, _ := source.Topics.Node("garden")
	got, ok := restored.Topics.Node("garden")
	if !ok || got.Weight != want.Weight {
		t.Errorf("garden topic diverged: %+v vs %+v", got, want)
	}

	if restored.Intents.Len() != source.Intents.Len() {
		t.Errorf("intent count lost: %d vs %d", restored.Intents.Len(), source.Intents.Len())
	}
	if restored.Anchors.Len() != source.Anchors.Len() {
		t.Errorf("anchor count lost: %d vs %d", restored.Anchors.Len(), source.Anchors.Len())
	}
	if restored.Reflections.Len() != source.Reflections.Len() {
		t.Errorf("reflection count lost: %d vs %d", restored.Reflections.Len(), source.Reflections.Len())
	}
}

func TestExportState_UnknownSession(t *testing.T) {
	e := NewEngine(fixedClockConfig())
	if _, err := e.ExportState("missing"); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestImportState_RejectsWrongVersion(t *testing.T) {
	e := NewEngine(fixedClockConfig())
	id := e.CreateSession(context.Background(), "conv-1", nil)

	blob, _ := json.Marshal(StateSnapshot{Version: 99})
	if err := e.ImportState(id, blob); err == nil {
		t.Error("expected version mismatch error")
	}
}

func TestImportState_RejectsGarbage(t *testing.T) {
	e := NewEngine(fixedClockConfig())
	id := e.CreateSession(context.Background(), "conv-1", nil)

	if err := e.ImportState(id, []byte("not json")); err == nil {
		t.Error("expected unmarshal error")
	}
}

func TestExportState_DeterministicForIdenticalState(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(fixedClockConfig())
	id := e.CreateSession(ctx, "conv-1", nil)
	e.ProcessMessage(ctx, id, userMessage("the garden keeps growing"))

	first, err := e.ExportState(id)
	if err != nil {
		t.Fatalf("ExportState failed: %v", err)
	}
	second, _ := e.ExportState(id)
	if string(first) != string(second) {
		t.Error("exporting unchanged state twice should produce identical blobs")
	}
}
