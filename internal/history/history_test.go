package history

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spigell/bioinfo-job-tracker/internal/posting"
)

var (
	t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(24 * time.Hour)
)

func samplePosting(source string) posting.RawPosting {
	return posting.RawPosting{
		Company:        "Acme Bio",
		JobTitle:       "Bioinformatics Scientist",
		Location:       "Boston, MA",
		RemoteOrHybrid: posting.RemoteHybrid,
		PostingDate:    "2025-05-30",
		Source:         source,
		JobURL:         "https://boards.greenhouse.io/acme/jobs/1",
	}
}

func TestObserveNewThenDuplicate(t *testing.T) {
	t.Parallel()

	s := New()

	status, rec, err := s.Observe(samplePosting("greenhouse"), "id-1", t0)
	require.NoError(t, err)
	require.Equal(t, StatusNew, status)
	require.NotNil(t, rec)
	require.Equal(t, t0, rec.FirstSeen)
	require.Equal(t, t0, rec.LastSeen)
	require.Equal(t, []string{"greenhouse"}, rec.SourcesSeen)

	status, rec, err = s.Observe(samplePosting("lever"), "id-1", t1)
	require.NoError(t, err)
	require.Equal(t, StatusDuplicate, status)
	require.Nil(t, rec)
	require.Equal(t, 1, s.Len())

	got, ok := s.Get("id-1")
	require.True(t, ok)
	require.Equal(t, t0, got.FirstSeen)
	require.Equal(t, t1, got.LastSeen)
	require.Equal(t, []string{"greenhouse", "lever"}, got.SourcesSeen)

	// Same source again and an earlier clock must not change anything.
	_, _, err = s.Observe(samplePosting("greenhouse"), "id-1", t0)
	require.NoError(t, err)
	got, _ = s.Get("id-1")
	require.Equal(t, t1, got.LastSeen)
	require.Equal(t, []string{"greenhouse", "lever"}, got.SourcesSeen)
}

func TestObserveReturnsCopy(t *testing.T) {
	t.Parallel()

	s := New()
	_, rec, err := s.Observe(samplePosting("ashby"), "id-1", t0)
	require.NoError(t, err)

	rec.SourcesSeen[0] = "mutated"
	rec.Company = "mutated"

	got, _ := s.Get("id-1")
	require.Equal(t, "Acme Bio", got.Company)
	require.Equal(t, []string{"ashby"}, got.SourcesSeen)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.csv")

	s := New()
	_, _, err := s.Observe(samplePosting("lever"), "id-b", t1)
	require.NoError(t, err)
	_, _, err = s.Observe(samplePosting("greenhouse"), "id-a", t1)
	require.NoError(t, err)
	_, _, err = s.Observe(samplePosting("workday"), "id-c", t0)
	require.NoError(t, err)
	_, _, err = s.Observe(samplePosting("ashby"), "id-b", t1.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, strings.Join(Columns, ","), lines[0])
	require.True(t, strings.HasPrefix(lines[1], "id-c,"), "oldest first_seen first: %s", lines[1])
	require.True(t, strings.HasPrefix(lines[2], "id-a,"), "ties ordered by id: %s", lines[2])
	require.Contains(t, lines[3], "ashby|lever")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, s.Records(), loaded.Records())
	require.NoError(t, loaded.Check())
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	s, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)
	require.Equal(t, 0, s.Len())
}

func TestReadToleratesColumnOrderAndPythonTimestamps(t *testing.T) {
	t.Parallel()

	in := "sources_seen,canonical_job_id,first_seen,last_seen,company,extra\n" +
		"lever|greenhouse|lever,id-1,2025-06-01T09:00:00+00:00,2025-06-02T09:00:00+00:00,Acme Bio,x\n"

	s, err := Read(strings.NewReader(in))
	require.NoError(t, err)

	rec, ok := s.Get("id-1")
	require.True(t, ok)
	require.Equal(t, "Acme Bio", rec.Company)
	require.Equal(t, []string{"greenhouse", "lever"}, rec.SourcesSeen)
	require.Equal(t, t0, rec.FirstSeen)
	require.Equal(t, t1, rec.LastSeen)
}

func TestReadErrors(t *testing.T) {
	t.Parallel()

	_, err := Read(strings.NewReader("company,job_title\nAcme,Scientist\n"))
	require.Error(t, err)

	_, err = Read(strings.NewReader("canonical_job_id,first_seen\nid-1,yesterday\n"))
	require.ErrorContains(t, err, "line 2")

	s, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, 0, s.Len())
}

func TestCorruptionIsFatal(t *testing.T) {
	t.Parallel()

	in := strings.Join(Columns, ",") + "\n" +
		"id-1,Acme,Scientist,,,,https://x/1,2025-06-01T09:00:00Z,2025-06-01T09:00:00Z,lever\n" +
		"id-1,Acme,Scientist,,,,https://x/1,2025-06-01T09:00:00Z,2025-06-01T09:00:00Z,ashby\n" +
		"id-2,Beta,Analyst,,,,https://x/2,2025-06-01T09:00:00Z,2025-06-01T09:00:00Z,lever\n"

	s, err := Read(strings.NewReader(in))
	require.NoError(t, err)

	err = s.Check()
	require.True(t, errors.Is(err, ErrCorruption))

	var corruption *CorruptionError
	require.True(t, errors.As(err, &corruption))
	require.Equal(t, "id-1", corruption.ID)
	require.Equal(t, 2, corruption.Count)

	before := s.Records()
	_, _, err = s.Observe(samplePosting("greenhouse"), "id-1", t1)
	require.ErrorIs(t, err, ErrCorruption)
	require.Equal(t, before, s.Records(), "a failed observe must not modify the store")

	status, _, err := s.Observe(samplePosting("greenhouse"), "id-2", t1)
	require.NoError(t, err)
	require.Equal(t, StatusDuplicate, status)
}
