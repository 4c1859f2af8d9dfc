package filecache

import (
	"os"
	"slices"
	"time"
)

// FileStat is the stat snapshot of one tracked path.
type FileStat struct {
	Path            string    `yaml:"path"`
	ModTime         time.Time `yaml:"mtime"`
	ChangeTime      time.Time `yaml:"ctime"`
	Size            int64     `yaml:"size"`
	DependencyPaths []string  `yaml:"dependency_paths,omitempty"`
}

// NewFileStat stats path and returns a record without dependencies.
func NewFileStat(path string) (*FileStat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &FileStat{
		Path:       path,
		ModTime:    info.ModTime(),
		ChangeTime: changeTime(path, info),
		Size:       info.Size(),
	}, nil
}

// SameStat reports whether both records describe the same file state.
// Dependency paths are not compared.
func (s *FileStat) SameStat(other *FileStat) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Size == other.Size &&
		s.ModTime.Equal(other.ModTime) &&
		s.ChangeTime.Equal(other.ChangeTime)
}

// HasDependency reports whether path is listed as a dependency.
func (s *FileStat) HasDependency(path string) bool {
	return slices.Contains(s.DependencyPaths, path)
}

func (s *FileStat) addDependency(path string) {
	if !s.HasDependency(path) {
		s.DependencyPaths = append(s.DependencyPaths, path)
	}
}
