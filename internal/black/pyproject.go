package black

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"blackguard/internal/logging"
)

// PyprojectFile is the project configuration black reads.
const PyprojectFile = "pyproject.toml"

// Project root markers, besides pyproject.toml itself.
var rootMarkers = []string{".git", ".hg"}

type pyproject struct {
	Tool struct {
		Black struct {
			LineLength              *int  `toml:"line-length"`
			SkipStringNormalization *bool `toml:"skip-string-normalization"`
		} `toml:"black"`
	} `toml:"tool"`
}

// modes memoizes parsed configurations per pyproject path for the life of the process.
var modes sync.Map // string -> Mode

// FindPyproject walks up from path to the project root and returns the pyproject.toml there, or
// "" when the root has none. The root is the first directory holding a pyproject.toml, a .git or
// a .hg entry, or the filesystem root.
func FindPyproject(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	dir := abs
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		dir = filepath.Dir(abs)
	}
	for {
		candidate := filepath.Join(dir, PyprojectFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return ""
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadMode reads the [tool.black] table of a pyproject.toml. Unset options keep their defaults.
func LoadMode(pyprojectPath string) (Mode, error) {
	mode := DefaultMode()
	data, err := os.ReadFile(pyprojectPath)
	if err != nil {
		return mode, errors.Wrapf(err, "read %s", pyprojectPath)
	}
	var cfg pyproject
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return mode, errors.Wrapf(err, "parse %s", pyprojectPath)
	}
	if v := cfg.Tool.Black.LineLength; v != nil {
		if *v <= 0 {
			return mode, errors.Newf("%s: line-length must be positive, got %d", pyprojectPath, *v)
		}
		mode.LineLength = *v
	}
	if v := cfg.Tool.Black.SkipStringNormalization; v != nil {
		mode.SkipStringNormalization = *v
	}
	return mode, nil
}

// ModeFor resolves the mode black would use for path. Results are cached per pyproject.toml.
// A configuration that cannot be read falls back to the default mode with a warning.
func ModeFor(path string) Mode {
	file := FindPyproject(path)
	if file == "" {
		return DefaultMode()
	}
	if cached, ok := modes.Load(file); ok {
		return cached.(Mode)
	}
	mode, err := LoadMode(file)
	if err != nil {
		logging.BlackWarn("ignoring black configuration: %v", err)
		mode = DefaultMode()
	} else {
		logging.BlackDebug("black mode from %s: line-length=%d skip-string-normalization=%v",
			file, mode.LineLength, mode.SkipStringNormalization)
	}
	actual, _ := modes.LoadOrStore(file, mode)
	return actual.(Mode)
}
