package util

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
)

// TempSuffix marks a directory as scratch space owned by a running invocation.
const TempSuffix = "_tmp"

// ScratchRegistry tracks the scratch directories created by this process.
// Other processes may share the same scratch base, so cleanup only ever
// touches directories registered here.
type ScratchRegistry struct {
	mu   sync.Mutex
	dirs map[string]struct{}
}

func NewScratchRegistry() *ScratchRegistry {
	return &ScratchRegistry{dirs: map[string]struct{}{}}
}

// Scratches is the registry of the running process.
var Scratches = NewScratchRegistry()

func (r *ScratchRegistry) Track(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs[dir] = struct{}{}
}

func (r *ScratchRegistry) Untrack(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dirs, dir)
}

// Tracked returns the registered directories in lexical order.
func (r *ScratchRegistry) Tracked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.dirs))
	for d := range r.dirs {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// Cleanup removes every registered directory and returns how many were
// removed. Directories that cannot be removed stay registered.
func (r *ScratchRegistry) Cleanup() int {
	removed := 0
	for _, dir := range r.Tracked() {
		if err := CleanupFolder(dir); err != nil {
			fmt.Printf("Error cleaning up %s: %v\n", dir, err)
			continue
		}
		r.Untrack(dir)
		removed++
	}
	return removed
}

func SetupInterruptHandler(r *ScratchRegistry) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		fmt.Println("\nInterrupt received. Cleaning up...")

		if n := r.Cleanup(); n > 0 {
			fmt.Printf("Removed %d scratch folder(s)\n", n)
		}
		fmt.Println("\nExiting due to interrupt.")

		os.Exit(1)
	}()
}

func CleanupFolder(folder string) error {
	return os.RemoveAll(folder)
}
