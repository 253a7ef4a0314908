package identity

import (
	"testing"

	"github.com/spigell/bioinfo-job-tracker/internal/posting"
)

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "  ", want: ""},
		{name: "drops query and fragment", in: "https://boards.greenhouse.io/acme/jobs/42?gh_src=x#apply", want: "https://boards.greenhouse.io/acme/jobs/42"},
		{name: "strips trailing slash", in: "https://jobs.lever.co/acme/abc/", want: "https://jobs.lever.co/acme/abc"},
		{name: "root slash", in: "https://jobs.lever.co/", want: "https://jobs.lever.co"},
		{name: "bare host", in: "https://jobs.lever.co", want: "https://jobs.lever.co"},
		{name: "lowercases scheme and host", in: "HTTPS://Jobs.Lever.CO/Acme/ABC", want: "https://jobs.lever.co/Acme/ABC"},
		{name: "strips only one slash", in: "https://a.io/x//", want: "https://a.io/x/"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CanonicalURL(tt.in); got != tt.want {
				t.Fatalf("CanonicalURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestComputeIsStableUnderCosmeticChanges(t *testing.T) {
	t.Parallel()

	base := Compute("Acme Bio", "Bioinformatics Scientist", "Boston, MA", "https://jobs.lever.co/acme/1")

	same := []string{
		Compute("  acme   BIO ", "bioinformatics  scientist", "boston,  ma", "https://jobs.lever.co/acme/1"),
		Compute("Acme Bio", "Bioinformatics Scientist", "Boston, MA", "https://jobs.lever.co/acme/1?utm_source=x"),
		Compute("Acme Bio", "Bioinformatics Scientist", "Boston, MA", "https://jobs.lever.co/acme/1/"),
	}
	for i, got := range same {
		if got != base {
			t.Fatalf("variant %d produced a different id", i)
		}
	}

	if len(base) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(base))
	}
}

func TestComputeRootURLSpellings(t *testing.T) {
	t.Parallel()

	bare := Compute("Acme", "Scientist", "Boston, MA", "https://a.io")
	slash := Compute("Acme", "Scientist", "Boston, MA", "https://a.io/")
	if bare != slash {
		t.Fatalf("root URL with and without trailing slash must share an id")
	}
}

func TestComputeDistinguishesFields(t *testing.T) {
	t.Parallel()

	base := Compute("Acme", "Scientist", "Boston, MA", "https://a.io/jobs/1")

	different := map[string]string{
		"company":  Compute("Acme2", "Scientist", "Boston, MA", "https://a.io/jobs/1"),
		"title":    Compute("Acme", "Engineer", "Boston, MA", "https://a.io/jobs/1"),
		"location": Compute("Acme", "Scientist", "Cambridge, MA", "https://a.io/jobs/1"),
		"url path": Compute("Acme", "Scientist", "Boston, MA", "https://a.io/jobs/2"),
	}
	for field, got := range different {
		if got == base {
			t.Fatalf("changing %s did not change the id", field)
		}
	}
}

func TestComputeEmptyFields(t *testing.T) {
	t.Parallel()

	if Compute("", "", "", "") != Compute(" ", "", "\t", "") {
		t.Fatalf("blank fields should normalize to the same id")
	}
	if Compute("", "", "", "") == Compute("a", "", "", "") {
		t.Fatalf("empty fields still participate in the digest")
	}
}

func TestOf(t *testing.T) {
	t.Parallel()

	p := posting.RawPosting{Company: "Acme", JobTitle: "Scientist", Location: "Remote", JobURL: "https://a.io/1"}
	if Of(p) != Compute("Acme", "Scientist", "Remote", "https://a.io/1") {
		t.Fatalf("Of must match Compute")
	}
}
