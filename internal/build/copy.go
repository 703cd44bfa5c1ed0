package build

import (
	"path/filepath"
	"strings"
)

// swapSuffixes are editor scratch files that never reach the output.
var swapSuffixes = []string{".swp", ".swx", "~"}

func isSwapFile(p string) bool {
	for _, s := range swapSuffixes {
		if strings.HasSuffix(p, s) {
			return true
		}
	}
	// vim probes directory writability with a file named 4913.
	return filepath.Base(p) == "4913"
}

func isHTML(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".html" || ext == ".htm"
}

func isJS(p string) bool {
	return strings.ToLower(filepath.Ext(p)) == ".js"
}

func isCSS(p string) bool {
	return strings.ToLower(filepath.Ext(p)) == ".css"
}

func isLess(p string) bool {
	return strings.ToLower(filepath.Ext(p)) == ".less"
}

// relativeInput maps an input path to the relative path it is mirrored under.
// Absolute paths inside workDir become relative to it; paths that would
// escape the output directory keep only their base name.
func relativeInput(p, workDir string) string {
	if filepath.IsAbs(p) {
		if rel, err := filepath.Rel(workDir, p); err == nil {
			p = rel
		}
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) || p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator)) {
		return filepath.Base(p)
	}
	return p
}

// destination returns where input p is copied to: HTML files under base,
// everything else under outdir.
func (o *Orchestrator) destination(p string) string {
	rel := relativeInput(p, o.workDir)
	if isHTML(rel) {
		return filepath.Join(o.layout.Base, rel)
	}
	return filepath.Join(o.layout.OutDir, rel)
}

// styleOutput is the compiled stylesheet path for the configured entry.
func (o *Orchestrator) styleOutput() string {
	rel := relativeInput(o.lessEntry, o.workDir)
	return filepath.Join(o.layout.OutDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".css")
}
