package model

import (
	"encoding/json"
	"testing"
)

func TestRequestKindValid(t *testing.T) {
	for _, k := range []RequestKind{KindIngest, KindSearch, KindAnswer} {
		if !k.Valid() {
			t.Errorf("kind %q should be valid", k)
		}
	}
	if RequestKind("summarize").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestRequestKindTopic(t *testing.T) {
	tests := []struct {
		kind  RequestKind
		topic string
	}{
		{KindIngest, "doc_ingest"},
		{KindSearch, "rag_search_request"},
		{KindAnswer, "rag_answer_request"},
		{RequestKind("bogus"), ""},
	}
	for _, tt := range tests {
		if got := tt.kind.Topic(); got != tt.topic {
			t.Errorf("Topic(%q) = %q, want %q", tt.kind, got, tt.topic)
		}
	}
}

func TestSearchRequestMessageWireFormat(t *testing.T) {
	msg := SearchRequestMessage{
		RequestID: "r1",
		TraceID:   "r1",
		Query:     "what is raft",
		TopK:      5,
		TenantID:  "tenant-alice",
		KBID:      DefaultKBID,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// The worker contract uses "topk", not "top_k"; a rename silently breaks
	// every search request.
	if _, ok := wire["topk"]; !ok {
		t.Fatalf("expected topk field, got: %v", wire)
	}
	if _, ok := wire["top_k"]; ok {
		t.Fatal("top_k must not appear on the wire")
	}
	if wire["request_id"] != "r1" {
		t.Errorf("request_id = %v", wire["request_id"])
	}
}

func TestSessionTitle(t *testing.T) {
	if got := SessionTitle("short"); got != "short" {
		t.Errorf("SessionTitle(short) = %q", got)
	}
	long := "this question is clearly longer than twenty characters"
	got := SessionTitle(long)
	if len([]rune(got)) != maxSessionTitleLen+3 {
		t.Errorf("truncated title length = %d runes (%q)", len([]rune(got)), got)
	}
}
