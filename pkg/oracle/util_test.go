package oracle

import (
	"strings"
	"testing"
)

func TestUnmarshalFlexible_JudgmentVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Judgment
	}{
		{
			name:  "valid json object",
			input: `{"supported":true,"justification":"stated in doc_1","confidence":0.9}`,
			want:  Judgment{Supported: true, Justification: "stated in doc_1", Confidence: 0.9},
		},
		{
			name:  "unquoted keys and single quotes",
			input: `{supported: false, justification: 'not mentioned'}`,
			want:  Judgment{Supported: false, Justification: "not mentioned"},
		},
		{
			name:  "trailing comma",
			input: `{"supported":true,"justification":"ok",}`,
			want:  Judgment{Supported: true, Justification: "ok"},
		},
		{
			name:  "missing end bracket",
			input: `{"supported":true,"justification":"ok"`,
			want:  Judgment{Supported: true, Justification: "ok"},
		},
		{
			name:  "stringified object",
			input: `"{\"supported\": true, \"justification\": \"ok\"}"`,
			want:  Judgment{Supported: true, Justification: "ok"},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"supported\": true, \"justification\": \"ok\"\n}\n",
			want:  Judgment{Supported: true, Justification: "ok"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got Judgment
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Supported != tc.want.Supported || got.Justification != tc.want.Justification {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{3.7, 1},
	}
	for _, tc := range tests {
		if got := ClampConfidence(tc.in); got != tc.want {
			t.Fatalf("ClampConfidence(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestBuildPrompt_ContainsClaimAndEvidence(t *testing.T) {
	prompt := BuildPrompt("Project named 'Atlas'", []string{"Document doc_1:\nAtlas kickoff", "Document doc_2:\nBudget"})
	for _, want := range []string{"Project named 'Atlas'", "Document doc_1:", "Document doc_2:"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}
