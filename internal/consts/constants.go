package consts

import "os"

// Constants for configuration paths and defaults
const (
	AppName           = "botsnap"
	DefaultConfigFile = "botsnap.yaml"
	EnvPrefix         = "BOTSNAP_"

	DefaultArchiveDir  = "backups"
	LockFileName       = ".botsnap.lock"
	JournalFileName    = ".botsnap-journal.json"
	JournalLockSuffix  = ".lock"
	ManifestEntryName  = "botsnap-manifest.json"
	StagingDirPrefix   = ".botsnap-staging-"
	RollbackDirPrefix  = ".botsnap-rollback-"
	TimestampLayout    = "20060102_150405"
	DefaultKeepCount   = 10
	DefaultJournalSize = 200

	TagSnapshot   = "snapshot"
	TagPreRestore = "pre_restore"

	CompressionGzip = "gzip"
	CompressionZstd = "zstd"

	ExtGzip = ".tar.gz"
	ExtZstd = ".tar.zst"
)

// Default bot data set, relative to the data root.
const (
	DefaultDatabaseFile = "secure_bot.db"
	DefaultConfigEnv    = ".env"
	DefaultLogFile      = "secure_bot.log"
	DefaultWriterName   = "secure-bot"
)

// Permission bits reapplied after a restore.
const (
	DatabaseMode os.FileMode = 0o700
	ConfigMode   os.FileMode = 0o600
)
