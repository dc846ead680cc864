package sha256

import "testing"

func TestDigesterStableAcrossRuns(t *testing.T) {
	t.Parallel()

	d := New()
	body := []byte(`[{"problem_id":"abc001_a"}]`)
	got, err := d.Hash(body)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if len(got) != BatchWidth {
		t.Fatalf("expected %d hex chars, got %d", BatchWidth, len(got))
	}
	again, _ := New().Hash(body)
	if again != got {
		t.Fatalf("expected identical batches to share a name, got %s vs %s", got, again)
	}
	other, _ := d.Hash([]byte(`[{"problem_id":"abc001_b"}]`))
	if other == got {
		t.Fatal("expected distinct digests for distinct batches")
	}
}

func TestDigesterWidth(t *testing.T) {
	t.Parallel()

	full, err := NewWidth(64)
	if err != nil {
		t.Fatalf("NewWidth(64) error = %v", err)
	}
	got, _ := full.Hash([]byte("hello world"))
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	short, _ := New().Hash([]byte("hello world"))
	if short != want[:BatchWidth] {
		t.Fatalf("expected %s, got %s", want[:BatchWidth], short)
	}
	for _, width := range []int{0, 65} {
		if _, err := NewWidth(width); err == nil {
			t.Fatalf("expected error for width %d", width)
		}
	}
}
