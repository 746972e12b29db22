// Package sequence finds the revisions of a document in a directory and
// orders them oldest to newest by the version number in their file names.
package sequence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrTooFewRevisions is returned when a directory holds fewer than two PDFs.
var ErrTooFewRevisions = errors.New("need at least 2 PDF files for comparison")

var (
	studyDesignRe = regexp.MustCompile(`study-design-(\d+)-(\d+)-(\d+)`)
	dottedRe      = regexp.MustCompile(`(?i)(?:version[_-]?|v)(\d+)\.(\d+)\.(\d+)`)
	tripleRe      = regexp.MustCompile(`(\d+)[.-](\d+)[.-](\d+)`)
	singleRe      = regexp.MustCompile(`(?i)(?:version[_-]?|v)(\d+)`)
)

// Version is a three-part version number.
type Version [3]int

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// Less orders versions component by component.
func (v Version) Less(o Version) bool {
	for i := range v {
		if v[i] != o[i] {
			return v[i] < o[i]
		}
	}
	return false
}

// File is one revision on disk.
type File struct {
	Path    string  `json:"path"`
	Name    string  `json:"filename"`
	Version Version `json:"-"`
	Label   string  `json:"version"`
}

// Pair is one comparison step, Left older than Right.
type Pair struct {
	Index int  `json:"pair"`
	Left  File `json:"left"`
	Right File `json:"right"`
}

// ParseVersion reads a version from a file name. Names without a
// recognizable version get 0.0.0.
func ParseVersion(filename string) Version {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	for _, re := range []*regexp.Regexp{studyDesignRe, dottedRe, tripleRe} {
		if m := re.FindStringSubmatch(name); m != nil {
			return Version{atoi(m[1]), atoi(m[2]), atoi(m[3])}
		}
	}
	if m := singleRe.FindStringSubmatch(name); m != nil {
		return Version{atoi(m[1]), 0, 0}
	}
	return Version{}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Discover lists the PDFs directly inside dir, ordered by version and then
// by name.
func Discover(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	var files []File
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		v := ParseVersion(e.Name())
		files = append(files, File{
			Path:    filepath.Join(dir, e.Name()),
			Name:    e.Name(),
			Version: v,
			Label:   v.String(),
		})
	}
	Sort(files)
	return files, nil
}

// Sort orders files by version, ties broken by name.
func Sort(files []File) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Version != files[j].Version {
			return files[i].Version.Less(files[j].Version)
		}
		return files[i].Name < files[j].Name
	})
}

// Pairs returns the consecutive comparison pairs of ordered files.
func Pairs(files []File) ([]Pair, error) {
	if len(files) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrTooFewRevisions, len(files))
	}
	pairs := make([]Pair, 0, len(files)-1)
	for i := 0; i+1 < len(files); i++ {
		pairs = append(pairs, Pair{Index: i + 1, Left: files[i], Right: files[i+1]})
	}
	return pairs, nil
}
