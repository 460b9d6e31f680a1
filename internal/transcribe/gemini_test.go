package transcribe

import (
	"testing"

	"google.golang.org/genai"

	"github.com/mgpai22/scribe/internal/subtitle"
)

func modelReply(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(text, genai.RoleModel),
		}},
	}
}

// Replies from the model flow through the subtitle builder into a document.
func TestGeminiReplyToDocument(t *testing.T) {
	const lecture = "1\n00:00:00,000 --> 00:00:04,200\nGood morning, everyone.\n\n" +
		"2\n00:00:04,200 --> 00:00:09,850\nToday we cover signal processing.\n\n"

	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{
			name:  "fenced array",
			reply: "```json\n[{\"start\": 0, \"end\": 4.2, \"text\": \" Good morning, everyone. \"}, {\"start\": 4.2, \"end\": 9.85, \"text\": \"Today we cover signal processing.\"}]\n```",
			want:  lecture,
		},
		{
			name: "array between prose",
			reply: `Sure! Timed transcript of lecture.mp4:
[{"start": 0, "end": 4.2, "text": "Good morning, everyone."},
 {"start": 4.2, "end": 9.85, "text": "Today we cover signal processing."}]
Timestamps are in seconds.`,
			want: lecture,
		},
		{
			name:  "segments wrapper with silence cue",
			reply: `{"language": "en", "segments": [{"start": 0, "end": 4.2, "text": "Good morning, everyone."}, {"start": 4.2, "end": 4.9, "text": "  "}, {"start": 4.9, "end": 9.85, "text": "Today we cover signal processing."}]}`,
			want: "1\n00:00:00,000 --> 00:00:04,200\nGood morning, everyone.\n\n" +
				"2\n00:00:04,900 --> 00:00:09,850\nToday we cover signal processing.\n\n",
		},
		{
			name:  "long recording past one hour",
			reply: `[{"start": 3725.4, "end": 3731.05, "text": "Questions from the floor."}]`,
			want:  "1\n01:02:05,400 --> 01:02:11,050\nQuestions from the floor.\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := parseTranscriptionResponse(modelReply(tt.reply))
			if err != nil {
				t.Fatalf("parseTranscriptionResponse: %v", err)
			}
			doc, err := subtitle.Serialize(subtitle.Build(segments))
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			if doc != tt.want {
				t.Errorf("document = %q, want %q", doc, tt.want)
			}
		})
	}
}

func TestGeminiReplyIndexesAreZeroBased(t *testing.T) {
	segments, err := parseTranscriptionResponse(modelReply(
		`[{"start": 0, "end": 1.25, "text": "hi"}, {"start": 1.25, "end": 2, "text": "there"}]`,
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, seg := range segments {
		if seg.Index != i {
			t.Errorf("segment %d Index = %d", i, seg.Index)
		}
	}
	if got := subtitle.Build(segments); got[0].Index != 1 || got[1].Index != 2 {
		t.Errorf("built indexes = %d, %d", got[0].Index, got[1].Index)
	}
}

func TestGeminiReplyRejected(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"no candidates", &genai.GenerateContentResponse{}},
		{"nil response", nil},
		{"fence only", modelReply("```json\n```")},
		{"refusal", modelReply("I can't transcribe this audio because it is silent.")},
		{"truncated array", modelReply(`[{"start": 0, "end": 2, "text": "cut off`)},
		{"only empty cues", modelReply(`[{"start": 0, "end": 0, "text": ""}]`)},
		{"numbers instead of cues", modelReply(`[0.0, 4.2, 9.85]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseTranscriptionResponse(tt.resp); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFindSegmentsPrefersTranscriptKeys(t *testing.T) {
	// "aside" sorts before "segments" but must not win
	reply := `{
		"aside": [{"start": 99, "end": 100, "text": "speaker notes"}],
		"segments": [{"start": 0, "end": 1.5, "text": "Welcome back."}]
	}`

	segments, err := extractTranscriptSegments(reply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "Welcome back." {
		t.Errorf("segments = %+v", segments)
	}
}

func TestFindSegmentsNestedWrapper(t *testing.T) {
	reply := `{"status": "ok"}
	{"result": {"meta": {"model": "gemini"}, "transcript": [{"start": 12.5, "end": 14, "text": "Chapter two."}]}}`

	segments, err := extractTranscriptSegments(reply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 || segments[0].Start != 12.5 {
		t.Errorf("segments = %+v", segments)
	}
}

func TestValidateSegmentsAcceptsTimedSilence(t *testing.T) {
	if !validateSegments([]transcriptSegment{{Start: 3, End: 4}}) {
		t.Error("timed cue without text should count as data")
	}
	if validateSegments([]transcriptSegment{{}, {}}) {
		t.Error("all-zero cues should not count as data")
	}
}
