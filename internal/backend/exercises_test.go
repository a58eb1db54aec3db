package backend

import (
	"encoding/json"
	"testing"
)

func TestCheckRequestAlwaysSendsContextFields(t *testing.T) {
	data, err := json.Marshal(NewCheckRequest("Кошка спит.", "Translate: The cat sleeps."))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	want := map[string]string{
		"student_translation": "Кошка спит.",
		"original_task":       "Translate: The cat sleeps.",
		"context_table":       "",
		"context_journal":     "",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d fields, want %d: %v", len(got), len(want), got)
	}
	for k, v := range want {
		value, ok := got[k]
		if !ok {
			t.Errorf("missing field %q", k)
			continue
		}
		if value != v {
			t.Errorf("%s = %q, want %q", k, value, v)
		}
	}
}

func TestCheckResponseKeepsResultRaw(t *testing.T) {
	var resp CheckResponse
	body := `{"result":{"score":9,"errors":[{"type":"Grammar"}]}}`
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if string(resp.Result) != `{"score":9,"errors":[{"type":"Grammar"}]}` {
		t.Errorf("Result = %s", resp.Result)
	}
}
