package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/brogergvhs/mangapdf/internal/util"
)

// Scratch is the staging directory of one invocation. Its name is unique per
// invocation, so concurrent runs for the same series and range never share
// files. It is registered in util.Scratches until Release removes it.
type Scratch struct {
	root string
}

// scratchBase resolves the directory scratch areas are created in. An empty
// dir means a mangapdf directory under the system temp directory.
func scratchBase(dir string) string {
	if dir == "" {
		return filepath.Join(os.TempDir(), "mangapdf")
	}
	return dir
}

// NewScratch creates <base>/<seriesID>-<uuid>_tmp.
func NewScratch(base, seriesID string) (*Scratch, error) {
	base = scratchBase(base)

	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating scratch base %s: %v", ErrStorage, base, err)
	}

	root := filepath.Join(base, seriesID+"-"+uuid.NewString()+util.TempSuffix)
	if err := os.Mkdir(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating scratch area: %v", ErrStorage, err)
	}
	util.Scratches.Track(root)

	return &Scratch{root: root}, nil
}

func (s *Scratch) Root() string {
	return s.root
}

// ChapterDir creates and returns the subdirectory for chapter n.
func (s *Scratch) ChapterDir(n int) (string, error) {
	dir := filepath.Join(s.root, strconv.Itoa(n))
	if err := os.Mkdir(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: creating chapter %d directory: %v", ErrStorage, n, err)
	}
	return dir, nil
}

// Path returns a file path directly inside the scratch area.
func (s *Scratch) Path(name string) string {
	return filepath.Join(s.root, name)
}

// Release removes the scratch area. It is safe to call more than once.
func (s *Scratch) Release() error {
	if err := util.CleanupFolder(s.root); err != nil {
		return fmt.Errorf("%w: removing scratch area %s: %v", ErrStorage, s.root, err)
	}
	util.Scratches.Untrack(s.root)
	return nil
}
