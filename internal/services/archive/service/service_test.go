package service

import (
	"context"
	"testing"
	"time"

	"vitals/internal/core/sample"
	"vitals/internal/modkit/repokit"
	perr "vitals/internal/platform/errors"
	ptime "vitals/internal/platform/time"
	"vitals/internal/services/archive/domain"
	"vitals/internal/services/archive/repo"
)

// --- fakes ---

type nopQueryer struct{}

func (nopQueryer) Exec(context.Context, string, ...any) (repokit.CommandTag, error) {
	return nil, nil
}
func (nopQueryer) Query(context.Context, string, ...any) (repokit.Rows, error) { return nil, nil }
func (nopQueryer) QueryRow(context.Context, string, ...any) repokit.Row       { return nil }

type fakeDB struct{ nopQueryer }

func (fakeDB) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error {
	return fn(nopQueryer{})
}

// fakeRepo holds hot rows in memory
type fakeRepo struct {
	rows []sample.Sample
}

func (f *fakeRepo) SitesBefore(_ context.Context, cutoff int64) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, r := range f.rows {
		if r.TS < cutoff && !seen[r.Site] {
			seen[r.Site] = true
			out = append(out, r.Site)
		}
	}
	return out, nil
}

func (f *fakeRepo) DaysBefore(_ context.Context, site string, cutoff int64) ([]time.Time, error) {
	seen := map[int64]bool{}
	var out []time.Time
	for _, r := range f.rows {
		if r.Site == site && r.TS < cutoff {
			d := r.TS / 86400
			if !seen[d] {
				seen[d] = true
				out = append(out, time.Unix(d*86400, 0).UTC())
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) RowsForDay(_ context.Context, site string, day time.Time, cutoff int64) ([]sample.Sample, error) {
	lo, hi := day.Unix(), day.Unix()+86400
	if cutoff < hi {
		hi = cutoff
	}
	var out []sample.Sample
	for _, r := range f.rows {
		if r.Site == site && r.TS >= lo && r.TS < hi {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) DeleteDay(_ context.Context, site string, day time.Time, cutoff int64) (int64, error) {
	lo, hi := day.Unix(), day.Unix()+86400
	if cutoff < hi {
		hi = cutoff
	}
	var kept []sample.Sample
	var deleted int64
	for _, r := range f.rows {
		if r.Site == site && r.TS >= lo && r.TS < hi {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return deleted, nil
}

func binderFor(r *fakeRepo) repokit.Binder[repo.Repo] {
	return repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return r })
}

type fakeChunks struct {
	byDay map[string]map[sample.Key]float64
	fail  bool
	puts  int
}

func (f *fakeChunks) Append(_ context.Context, _ string, day time.Time, xs []sample.Sample) (int, int64, error) {
	if f.fail {
		return 0, 0, perr.Unavailablef("object store down")
	}
	if f.byDay == nil {
		f.byDay = map[string]map[sample.Key]float64{}
	}
	k := ptime.DayKey(day)
	if f.byDay[k] == nil {
		f.byDay[k] = map[sample.Key]float64{}
	}
	for _, s := range xs {
		f.byDay[k][s.Key()] = s.Value
	}
	f.puts++
	return len(f.byDay[k]), 100, nil
}

type memPassState struct {
	last *domain.PassResult
}

func (m *memPassState) SaveLastPass(_ context.Context, p domain.PassResult) error {
	m.last = &p
	return nil
}

func (m *memPassState) LoadLastPass(context.Context) (domain.PassResult, bool, error) {
	if m.last == nil {
		return domain.PassResult{}, false, nil
	}
	return *m.last, true, nil
}

type memRollups struct{ got []domain.Rollup }

func (m *memRollups) WriteDaily(_ context.Context, rs []domain.Rollup) error {
	m.got = append(m.got, rs...)
	return nil
}

func fixedNow() time.Time { return time.Date(2024, 6, 30, 6, 0, 0, 0, time.UTC) }

func newSvc(r *fakeRepo, chunks *fakeChunks, rollups domain.RollupSink) *Service {
	s := New(fakeDB{}, binderFor(r), chunks, &memPassState{}, rollups, Config{RetentionDays: 20, Workers: 1})
	s.NowFn = fixedNow
	// bypass the advisory lock; contention is covered separately
	s.Lease = func(ctx context.Context, _ string, _ time.Time, do func(context.Context, repokit.Queryer) error) error {
		return do(ctx, nopQueryer{})
	}
	return s
}

// seed writes n days of hourly samples ending at now
func seed(r *fakeRepo, site string, days int) {
	now := fixedNow().Unix()
	for d := 0; d < days; d++ {
		for h := 0; h < 24; h++ {
			ts := now - int64(d*86400) - int64(h*3600)
			r.rows = append(r.rows, sample.Sample{Site: site, Point: "p1", TS: ts, Value: float64(d)})
		}
	}
}

// --- tests ---

func TestRunPassMovesOldDaysOnly(t *testing.T) {
	r := &fakeRepo{}
	seed(r, "site_a", 25)
	chunks := &fakeChunks{}
	svc := newSvc(r, chunks, nil)

	res, err := svc.RunPass(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Errors != 0 {
		t.Fatalf("errors = %d", res.Errors)
	}
	if res.RowsMoved == 0 {
		t.Fatal("nothing moved")
	}

	// retention invariant: no hot row older than the cutoff survives
	cutoff := svc.Cutoff()
	for _, row := range r.rows {
		if row.TS < cutoff {
			t.Fatalf("hot row older than cutoff survived: ts=%d cutoff=%d", row.TS, cutoff)
		}
	}
	// recent rows stayed hot
	if len(r.rows) == 0 {
		t.Fatal("recent rows were deleted")
	}
	// moved rows are all present in cold chunks
	var coldRows int
	for _, day := range chunks.byDay {
		coldRows += len(day)
	}
	if int64(coldRows) != res.RowsMoved {
		t.Fatalf("cold rows %d != rows moved %d", coldRows, res.RowsMoved)
	}
}

func TestRunPassIsIdempotent(t *testing.T) {
	r := &fakeRepo{}
	seed(r, "site_a", 25)
	chunks := &fakeChunks{}
	svc := newSvc(r, chunks, nil)
	ctx := context.Background()

	if _, err := svc.RunPass(ctx); err != nil {
		t.Fatal(err)
	}
	res2, err := svc.RunPass(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res2.RowsMoved != 0 || res2.DaysMoved != 0 {
		t.Fatalf("second pass moved rows: %+v", res2)
	}
}

func TestFailedChunkWriteKeepsHotRows(t *testing.T) {
	r := &fakeRepo{}
	seed(r, "site_a", 25)
	before := len(r.rows)
	svc := newSvc(r, &fakeChunks{fail: true}, nil)

	res, err := svc.RunPass(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Errors == 0 {
		t.Fatal("failures not counted")
	}
	if len(r.rows) != before {
		t.Fatalf("hot rows deleted despite failed cold write: %d -> %d", before, len(r.rows))
	}
}

func TestRunPassWritesRollups(t *testing.T) {
	r := &fakeRepo{}
	seed(r, "site_a", 22)
	sink := &memRollups{}
	svc := newSvc(r, &fakeChunks{}, sink)

	if _, err := svc.RunPass(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sink.got) == 0 {
		t.Fatal("no rollups written")
	}
	for _, ru := range sink.got {
		if ru.Count == 0 || ru.Min > ru.Max {
			t.Fatalf("bad rollup: %+v", ru)
		}
	}
}

func TestRunPassRecordsLastPass(t *testing.T) {
	r := &fakeRepo{}
	seed(r, "site_a", 25)
	svc := newSvc(r, &fakeChunks{}, nil)

	if _, err := svc.RunPass(context.Background()); err != nil {
		t.Fatal(err)
	}
	last, ok, err := svc.LastPass(context.Background())
	if err != nil || !ok {
		t.Fatalf("last pass: ok=%v err=%v", ok, err)
	}
	if last.RowsMoved == 0 {
		t.Fatalf("recorded pass empty: %+v", last)
	}
}

func TestAggregate(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	xs := []sample.Sample{
		{Site: "s", Point: "p1", TS: 10, Value: 1},
		{Site: "s", Point: "p1", TS: 20, Value: 3},
		{Site: "s", Point: "p2", TS: 10, Value: -5},
	}
	rs := aggregate("s", day, xs)
	if len(rs) != 2 {
		t.Fatalf("rollups = %d", len(rs))
	}
	for _, r := range rs {
		switch r.Point {
		case "p1":
			if r.Count != 2 || r.Min != 1 || r.Max != 3 || r.Avg != 2 {
				t.Fatalf("p1 rollup: %+v", r)
			}
		case "p2":
			if r.Count != 1 || r.Min != -5 || r.Avg != -5 {
				t.Fatalf("p2 rollup: %+v", r)
			}
		}
	}
}
