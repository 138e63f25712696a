package idgen

import (
	"context"
	"strings"
	"testing"

	"github.com/atlaslab/labmanager/internal/app/domain/sample"
	"github.com/atlaslab/labmanager/internal/app/storage/memory"
)

func TestRandomShapeAndCharset(t *testing.T) {
	for _, length := range []int{CustomerCodeLength, ProjectCodeLength, SampleCodeLength} {
		code, err := Random(length)
		if err != nil {
			t.Fatalf("random: %v", err)
		}
		if len(code) != length {
			t.Fatalf("len(%q) = %d, want %d", code, len(code), length)
		}
		for _, r := range code {
			if !strings.ContainsRune(charset, r) {
				t.Fatalf("code %q contains %q outside charset", code, r)
			}
		}
	}
}

func TestUniqueRetriesOnCollision(t *testing.T) {
	taken := map[string]bool{}
	first := true
	var firstCode string

	code, err := Unique(context.Background(), 5, func(_ context.Context, c string) (bool, error) {
		if first {
			// pretend the first draw is always taken
			first = false
			firstCode = c
			taken[c] = true
			return true, nil
		}
		return taken[c], nil
	})
	if err != nil {
		t.Fatalf("unique: %v", err)
	}
	if code == firstCode {
		t.Fatalf("returned the code reported as taken: %q", code)
	}
}

func TestSampleCodeAvoidsExisting(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := SampleCode(ctx, store)
		if err != nil {
			t.Fatalf("sample code: %v", err)
		}
		if len(code) != SampleCodeLength {
			t.Fatalf("len = %d", len(code))
		}
		if seen[code] {
			t.Fatalf("duplicate code issued: %s", code)
		}
		seen[code] = true
		if _, err := store.CreateSample(ctx, sample.Sample{Code: code, Name: "s", CustomerID: 1, SampleTypeID: 1}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
}
