package models

// GeneratedFile is a complete source file produced for a site
type GeneratedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// FileSet is an ordered list of files keyed by path
type FileSet []GeneratedFile

// FileSetDocument is the JSON envelope used by the model output contract and the archive
type FileSetDocument struct {
	Files FileSet `json:"files"`
}

// Get returns the file stored at path
func (fs FileSet) Get(path string) (GeneratedFile, bool) {
	for _, f := range fs {
		if f.Path == path {
			return f, true
		}
	}
	return GeneratedFile{}, false
}

// Paths returns file paths in order
func (fs FileSet) Paths() []string {
	paths := make([]string, 0, len(fs))
	for _, f := range fs {
		paths = append(paths, f.Path)
	}
	return paths
}

// Merge overlays changed onto fs keyed by path. Files already present keep their
// position with the new content; new paths are appended in the order they arrive.
// A later entry always wins over an earlier one with the same path.
func (fs FileSet) Merge(changed FileSet) FileSet {
	index := make(map[string]int, len(fs)+len(changed))
	merged := make(FileSet, 0, len(fs)+len(changed))

	for _, f := range append(append(FileSet{}, fs...), changed...) {
		if i, ok := index[f.Path]; ok {
			merged[i] = f
			continue
		}
		index[f.Path] = len(merged)
		merged = append(merged, f)
	}

	return merged
}

// Dedupe collapses duplicate paths, keeping the last occurrence at the first position
func (fs FileSet) Dedupe() FileSet {
	return FileSet{}.Merge(fs)
}

// SiteSnapshot is the archived state of a deployed site: the profile it was
// generated from and the exact files that were uploaded
type SiteSnapshot struct {
	Profile BrandProfile `json:"profile"`
	Files   FileSet      `json:"files"`
}
