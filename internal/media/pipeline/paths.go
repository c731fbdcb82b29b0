package pipeline

import (
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"
)

const DefaultRemotePrefix = "videos-hls"

const defaultContentType = "application/octet-stream"

// Типы, которых нет (или они разные) в системных mime-таблицах.
var hlsContentTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".ts":   "video/mp2t",
	".m4s":  "video/iso.segment",
	".mp4":  "video/mp4",
	".aac":  "audio/aac",
	".vtt":  "text/vtt",
}

// JobID derives the job identity from a source path: the base name without
// its extension.
func JobID(sourcePath string) string {
	base := filepath.Base(sourcePath)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ContentType maps an output file to the content type stored with it.
func ContentType(file string) string {
	ext := strings.ToLower(filepath.Ext(file))
	if ct, ok := hlsContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return defaultContentType
}

// RemoteKey swaps the local output root for the remote prefix, keeping the
// relative sub path and file name.
func RemoteKey(outputRoot, remotePrefix, file string) (string, error) {
	rel, err := filepath.Rel(outputRoot, file)
	if err != nil {
		return "", fmt.Errorf("relative path of %q: %w", file, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q is outside output root %q", file, outputRoot)
	}
	return path.Join(remotePrefix, filepath.ToSlash(rel)), nil
}
