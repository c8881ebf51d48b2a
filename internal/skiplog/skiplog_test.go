package skiplog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func TestReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "skipped.csv")
	r, closeFn, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r.Add("orders", "user_not_found", "42", "ghost_user")
	r.Add("orders", "user_not_found", "43", "another_ghost")
	r.Add("orders", "product_not_found", "44", "Unobtainium Gadget")
	closeFn()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if len(rows) != 4 { // header + 3
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[1][1] != "user_not_found" || rows[1][2] != "42" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}

	if got := r.Reasons()["user_not_found"]; got != 2 {
		t.Fatalf("user_not_found count = %d, want 2", got)
	}
	sum := r.Summary()
	if len(sum) != 2 || sum[0] != "product_not_found=1" || sum[1] != "user_not_found=2" {
		t.Fatalf("unexpected summary: %v", sum)
	}
}
