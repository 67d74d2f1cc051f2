package similarity

import "testing"

func TestSimilarityIdenticalAfterNormalization(t *testing.T) {
	cases := [][2]string{
		{"Amélie", "amelie"},
		{"Me & You", "me and you"},
		{"Spider-Man: No Way Home", "spider man no way home"},
	}
	for _, c := range cases {
		if got := Similarity(c[0], c[1]); got != 1.0 {
			t.Fatalf("Similarity(%q, %q) = %v, want 1.0", c[0], c[1], got)
		}
	}
}

func TestSimilaritySuffixContainment(t *testing.T) {
	got := Similarity("Will Vinton's Claymation Christmas", "Claymation Christmas")
	if got < 0.9 {
		t.Fatalf("expected suffix containment score >= 0.9, got %v", got)
	}
}

func TestSimilarityUnrelated(t *testing.T) {
	if got := Similarity("The Office", "Breaking Bad"); got > 0.5 {
		t.Fatalf("expected low similarity, got %v", got)
	}
	if got := Similarity("", "Breaking Bad"); got != 0 {
		t.Fatalf("expected 0 for empty input, got %v", got)
	}
}

func TestSimilarityOrdersCloserTitlesHigher(t *testing.T) {
	close := Similarity("Dark", "Darl")
	far := Similarity("Dark", "Lost")
	if close <= far {
		t.Fatalf("expected %v > %v", close, far)
	}
}
