//go:build property
// +build property

package store

import (
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/marklive/internal/notify"
)

func TestCacheProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("concurrent readers only see whole committed artifacts", prop.ForAll(
		func(writers, updates, readers int) bool {
			n := notify.New(writers * updates)
			sub, err := n.Subscribe()
			if err != nil {
				return false
			}
			c := New("doc", "v1", n)

			var wg sync.WaitGroup
			var torn sync.Once
			ok := true

			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < updates; i++ {
						c.Update("doc", "")
					}
				}()
			}

			for r := 0; r < readers; r++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					var last uint64
					for i := 0; i < updates; i++ {
						a := c.Read()
						if a.Version < last || a.Name != "doc" {
							torn.Do(func() { ok = false })
						}
						last = a.Version
					}
				}()
			}
			wg.Wait()

			total := uint64(writers*updates) + 1
			if !ok || c.Version() != total {
				return false
			}

			// One signal per update, each carrying a distinct version.
			seen := make(map[uint64]bool)
			for len(sub.C()) > 0 {
				sig := <-sub.C()
				if seen[sig.Version] || sig.Version < 2 || sig.Version > total {
					return false
				}
				seen[sig.Version] = true
			}
			return len(seen) == writers*updates
		},
		gen.IntRange(1, 8),
		gen.IntRange(1, 50),
		gen.IntRange(1, 8),
	))

	properties.Property("versions are consecutive and bodies match their commit", prop.ForAll(
		func(bodies []string) bool {
			c := New("doc", "initial", nil)
			for i, body := range bodies {
				a := c.Update("doc", body)
				if a.Version != uint64(i+2) || c.Read().HTML != body {
					return false
				}
			}
			return c.Version() == uint64(len(bodies)+1)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
