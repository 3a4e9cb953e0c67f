package jsonutil

import "testing"

type sample struct {
	MakeMiss string   `json:"make_miss"`
	Range    string   `json:"range"`
	Tips     []string `json:"tips"`
}

func TestParseJSON_Plain(t *testing.T) {
	got, err := ParseJSON[sample](`{"make_miss":"MAKE","range":"LAY_UP","tips":["follow through"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MakeMiss != "MAKE" || got.Range != "LAY_UP" || len(got.Tips) != 1 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestParseJSON_Fenced(t *testing.T) {
	raw := "```json\n{\"make_miss\":\"MISS\",\"range\":\"THREE_POINTER\",\"tips\":[]}\n```"
	got, err := ParseJSON[sample](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MakeMiss != "MISS" || got.Range != "THREE_POINTER" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestParseJSON_Prose(t *testing.T) {
	raw := "Here is the classification you asked for:\n{\"make_miss\":\"MAKE\",\"range\":\"FREE_THROW\",\"tips\":[\"bend your knees\"]}\nHope that helps!"
	got, err := ParseJSON[sample](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Range != "FREE_THROW" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestParseJSON_NoJSON(t *testing.T) {
	if _, err := ParseJSON[sample]("the shot looked like a make to me"); err == nil {
		t.Error("expected error for response with no JSON")
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	if _, err := ParseJSON[sample](`{"make_miss": MAKE}`); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestStripMarkdownFences_NoFences(t *testing.T) {
	in := `{"a":1}`
	if got := StripMarkdownFences(in); got != in {
		t.Errorf("StripMarkdownFences(%q) = %q", in, got)
	}
}

func TestExtractJSON_Array(t *testing.T) {
	got, err := ExtractJSON(`prefix [1,2,3] suffix`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "[1,2,3]" {
		t.Errorf("ExtractJSON = %q", got)
	}
}
