package repo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"vitals/internal/core/sample"
	"vitals/internal/platform/store"
	archiverepo "vitals/internal/services/archive/repo"
	queryrepo "vitals/internal/services/query/repo"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const schema = `
CREATE TABLE IF NOT EXISTS timeseries (
    site  TEXT             NOT NULL,
    point TEXT             NOT NULL,
    ts    BIGINT           NOT NULL,
    value DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (site, point, ts)
);`

// pgStore spins up a disposable postgres and opens the platform store on it.
// Gated behind VITALS_TEST_PG=1 so unit runs stay docker-free.
func pgStore(t *testing.T) *store.Store {
	t.Helper()
	if os.Getenv("VITALS_TEST_PG") != "1" {
		t.Skip("set VITALS_TEST_PG=1 to run postgres integration tests")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "vitals",
			"POSTGRES_PASSWORD": "vitals",
			"POSTGRES_DB":       "vitals",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatal(err)
	}
	dsn := fmt.Sprintf("postgres://vitals:vitals@%s:%s/vitals?sslmode=disable", host, port.Port())

	st, err := store.Open(ctx, store.Config{PG: store.PGConfig{Enabled: true, URL: dsn, MaxConns: 2}})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	if _, err := st.PG.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}
	return st
}

func TestUpsertScanDeleteCycle(t *testing.T) {
	st := pgStore(t)
	ctx := context.Background()

	etlRepo := NewPG().Bind(st.PG)
	qRepo := queryrepo.NewPG().Bind(st.PG)
	arcRepo := archiverepo.NewPG().Bind(st.PG)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	xs := []sample.Sample{
		{Site: "site_a", Point: "p1", TS: day.Unix() + 60, Value: 1.5},
		{Site: "site_a", Point: "p1", TS: day.Unix() + 120, Value: 2.5},
		{Site: "site_a", Point: "p2", TS: day.Unix() + 60, Value: 3.5},
	}

	if _, err := etlRepo.UpsertSamples(ctx, xs); err != nil {
		t.Fatal(err)
	}

	// idempotent replay with one changed value
	xs[0].Value = 9.5
	if _, err := etlRepo.UpsertSamples(ctx, xs); err != nil {
		t.Fatal(err)
	}

	rows, err := qRepo.Scan(ctx, "site_a", []string{"p1", "p2"}, day.Unix(), day.Unix()+86400)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (upsert must not duplicate)", len(rows))
	}
	for _, r := range rows {
		if r.Point == "p1" && r.TS == day.Unix()+60 && r.Value != 9.5 {
			t.Fatalf("upsert did not replace value: %+v", r)
		}
	}

	// archival scan/delete bounded by cutoff
	cutoff := day.Unix() + 90
	days, err := arcRepo.DaysBefore(ctx, "site_a", cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 || !days[0].Equal(day) {
		t.Fatalf("days = %v", days)
	}
	old, err := arcRepo.RowsForDay(ctx, "site_a", day, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if len(old) != 2 {
		t.Fatalf("rows below cutoff = %d, want 2", len(old))
	}
	deleted, err := arcRepo.DeleteDay(ctx, "site_a", day, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d", deleted)
	}
	left, err := qRepo.Scan(ctx, "site_a", []string{"p1", "p2"}, day.Unix(), day.Unix()+86400)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 {
		t.Fatalf("surviving rows = %d, want 1 (above cutoff)", len(left))
	}
}

func TestPointStringsPreservedByteExact(t *testing.T) {
	st := pgStore(t)
	ctx := context.Background()

	etlRepo := NewPG().Bind(st.PG)
	qRepo := queryrepo.NewPG().Bind(st.PG)

	point := "AHU-1/Zone Temp °F (raw) "
	if _, err := etlRepo.UpsertSamples(ctx, []sample.Sample{
		{Site: "s", Point: point, TS: 1000, Value: 1},
	}); err != nil {
		t.Fatal(err)
	}
	rows, err := qRepo.Scan(ctx, "s", []string{point}, 0, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Point != point {
		t.Fatalf("point mutated: %+v", rows)
	}
}
