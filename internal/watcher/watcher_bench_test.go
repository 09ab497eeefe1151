package watcher

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func benchDocument(b *testing.B, size int) string {
	b.Helper()
	path := filepath.Join(b.TempDir(), "README.md")
	if err := os.WriteFile(path, bytes.Repeat([]byte("# line\n"), size/7+1), 0o644); err != nil {
		b.Fatal(err)
	}
	return path
}

// BenchmarkPollSnapshot measures one poll tick when the file is untouched
// (stat only) and when its metadata moved (stat plus hash).
func BenchmarkPollSnapshot(b *testing.B) {
	for _, size := range []int{1 << 10, 64 << 10, 1 << 20} {
		path := benchDocument(b, size)
		d := NewPollDetector(path, time.Second, clockwork.NewRealClock())

		prev, err := d.snapshot(fileState{})
		if err != nil {
			b.Fatal(err)
		}

		b.Run(fmt.Sprintf("unchanged-%dKB", size>>10), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := d.snapshot(prev); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run(fmt.Sprintf("changed-%dKB", size>>10), func(b *testing.B) {
			stale := prev
			stale.size = -1
			b.SetBytes(prev.size)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := d.snapshot(stale); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkDebouncerBurst measures collapsing a burst of changes into one
// delivery.
func BenchmarkDebouncerBurst(b *testing.B) {
	for _, burst := range []int{1, 10, 100} {
		b.Run(fmt.Sprintf("burst-%d", burst), func(b *testing.B) {
			d := NewDebouncer(0, clockwork.NewFakeClock())
			defer d.Stop()

			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				for j := 0; j < burst; j++ {
					d.Add(Change{Type: EventTypeModified})
				}
				<-d.C()
			}
		})
	}
}
