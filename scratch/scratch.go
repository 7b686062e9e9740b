// Package scratch manages the temporary files of in-flight requests.
//
// Each request holds a Lease on a Dir. Every file the lease creates is named after the lease ID, so everything that
// belongs to a request can be found, and deleted, by prefix.
package scratch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alanbriolat/neobyte/generic"
	"github.com/alanbriolat/neobyte/internal/sync_"
)

var ErrNoDir = errors.New("scratch directory does not exist")

// Suffixes of files that tools write while still working, never treated as outputs.
var partialSuffixes = []string{".part", ".ytdl", ".tmp", ".temp"}

type dirConfig struct {
	logger *zap.Logger
	mode   os.FileMode
}

type DirOption func(*dirConfig)

func WithLogger(logger *zap.Logger) DirOption {
	return func(c *dirConfig) {
		c.logger = logger
	}
}

// A Dir is a scratch directory shared by concurrent requests.
type Dir struct {
	path   string
	config dirConfig
	active *sync_.RWMutexed[generic.Set[string]]
}

func New(path string, opts ...DirOption) *Dir {
	config := dirConfig{
		logger: zap.NewNop(),
		mode:   0755,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Dir{
		path:   path,
		config: config,
		active: sync_.NewRWMutexed(generic.NewSet[string]()),
	}
}

func (d *Dir) Path() string {
	return d.path
}

// Active is the number of leases not yet released.
func (d *Dir) Active() int {
	return sync_.Read(d.active, generic.Set[string].Count)
}

// Acquire creates the directory if needed and hands out a new Lease with a random ID.
func (d *Dir) Acquire() (*Lease, error) {
	if err := os.MkdirAll(d.path, d.config.mode); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir %v: %w", d.path, err)
	}
	lease := &Lease{
		ID:  uuid.NewString(),
		dir: d,
		aux: generic.NewSet[string](),
	}
	_ = d.active.Locked(func(s generic.Set[string]) error {
		s.Add(lease.ID)
		return nil
	})
	d.config.logger.Debug("acquired lease", zap.String("lease", lease.ID))
	return lease, nil
}

// WithLease runs f with a fresh Lease, releasing it afterwards whatever happens.
func (d *Dir) WithLease(f func(lease *Lease) error) error {
	lease, err := d.Acquire()
	if err != nil {
		return err
	}
	defer lease.Release()
	return f(lease)
}

// Sweep deletes the regular files in the directory, leaving subdirectories alone, and returns how many were
// deleted. Files that belong to an active lease are skipped. ErrNoDir is returned if the directory is missing.
func (d *Dir) Sweep() (int, error) {
	entries, err := os.ReadDir(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, ErrNoDir
	} else if err != nil {
		return 0, err
	}

	var active []string
	_ = d.active.RLocked(func(s generic.Set[string]) error {
		active = s.ToSlice()
		return nil
	})

	count := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if ownedByAny(entry.Name(), active) {
			continue
		}
		path := filepath.Join(d.path, entry.Name())
		if err := os.Remove(path); err != nil {
			d.config.logger.Error("failed to remove scratch file", zap.String("path", path), zap.Error(err))
			continue
		}
		count++
	}
	d.config.logger.Info("swept scratch dir", zap.String("dir", d.path), zap.Int("removed", count))
	return count, nil
}

func (d *Dir) release(id string) {
	_ = d.active.Locked(func(s generic.Set[string]) error {
		s.Remove(id)
		return nil
	})
}

func ownedByAny(name string, ids []string) bool {
	for _, id := range ids {
		if strings.HasPrefix(name, id) {
			return true
		}
	}
	return false
}

// A Lease is one request's claim on a Dir. It is not safe for concurrent use.
type Lease struct {
	ID      string
	dir     *Dir
	aux     generic.Set[string]
	release sync.Once
}

// File is the path of an output file with the given extension, e.g. File("mp4") is "{dir}/{id}.mp4".
func (l *Lease) File(ext string) string {
	return filepath.Join(l.dir.path, l.ID+"."+strings.TrimPrefix(ext, "."))
}

// Aux is the path of an auxiliary input file, such as an uploaded cookie jar. Aux files are deleted on Release but
// never reported by Outputs or removed by Reset.
func (l *Lease) Aux(suffix string) string {
	name := l.ID + "." + strings.TrimPrefix(suffix, ".")
	l.aux.Add(name)
	return filepath.Join(l.dir.path, name)
}

// Files lists every file in the directory owned by the lease, sorted by name.
func (l *Lease) Files() ([]string, error) {
	entries, err := os.ReadDir(l.dir.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), l.ID) {
			continue
		}
		files = append(files, filepath.Join(l.dir.path, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Outputs lists the finished output files of the lease: everything except aux files and partial downloads.
func (l *Lease) Outputs() ([]string, error) {
	files, err := l.Files()
	if err != nil {
		return nil, err
	}
	var outputs []string
	for _, path := range files {
		name := filepath.Base(path)
		if l.aux.Contains(name) || isPartial(name) {
			continue
		}
		outputs = append(outputs, path)
	}
	return outputs, nil
}

// Reset deletes everything but aux files, so a failed attempt leaves nothing behind for the next one.
func (l *Lease) Reset() {
	files, err := l.Files()
	if err != nil {
		l.dir.config.logger.Error("failed to list lease files", zap.String("lease", l.ID), zap.Error(err))
		return
	}
	for _, path := range files {
		if l.aux.Contains(filepath.Base(path)) {
			continue
		}
		l.remove(path)
	}
}

// Release deletes every file of the lease and returns the ID to the Dir. Calling it again does nothing. Failures are
// logged rather than returned, since there is nobody left to report them to.
func (l *Lease) Release() {
	l.release.Do(func() {
		defer l.dir.release(l.ID)
		files, err := l.Files()
		if err != nil {
			l.dir.config.logger.Error("failed to list lease files", zap.String("lease", l.ID), zap.Error(err))
			return
		}
		for _, path := range files {
			l.remove(path)
		}
		l.dir.config.logger.Debug("released lease", zap.String("lease", l.ID), zap.Int("removed", len(files)))
	})
}

func (l *Lease) remove(path string) {
	if err := os.RemoveAll(path); err != nil {
		l.dir.config.logger.Error("failed to remove scratch file", zap.String("path", path), zap.Error(err))
	}
}

func isPartial(name string) bool {
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
