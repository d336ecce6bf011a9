package domain

import "path/filepath"

const (
	// PredDirName is the name of the internal workspace directory.
	PredDirName = ".pred"

	// CacheDirName is the name of the cache directory.
	CacheDirName = "cache"

	// StateDirName is the name of the shared process state directory.
	StateDirName = "state"

	// GraphDirName is the name of the citation graph database directory.
	GraphDirName = "graph"

	// EntriesDirName holds cache entries inside the cache directory.
	EntriesDirName = "entries"

	// QuarantineDirName holds corrupted cache entries inside the cache directory.
	QuarantineDirName = "quarantine"

	// ManifestFileName is the name of the manifest file inside the cache directory.
	ManifestFileName = "manifest.json"

	// ManifestBackupSuffix is appended to the manifest file name for its rollback copy.
	ManifestBackupSuffix = ".bak"

	// EntrySuffix is the file extension of cache entries.
	EntrySuffix = ".entry"

	// RateLimitStateFile is the name of the shared token bucket state file.
	RateLimitStateFile = "ratelimit.json"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "pred.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultPredPath returns the default root directory for pred metadata.
func DefaultPredPath() string {
	return PredDirName
}

// DefaultCachePath returns the default path for the cache.
// It joins .pred and cache.
func DefaultCachePath() string {
	return filepath.Join(PredDirName, CacheDirName)
}

// DefaultStatePath returns the default path for cross-process state.
// It joins .pred and state.
func DefaultStatePath() string {
	return filepath.Join(PredDirName, StateDirName)
}

// DefaultGraphPath returns the default path for the citation graph database.
// It joins .pred and graph.
func DefaultGraphPath() string {
	return filepath.Join(PredDirName, GraphDirName)
}
