package models

// FailureRecord describes one isolated failure encountered during a run.
// Stage is "list", "transfer" or "delete".
type FailureRecord struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key,omitempty"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

type BucketResult struct {
	BucketName      string          `json:"bucket_name"`
	FilesTotal      int             `json:"files_total"`
	FilesCompleted  int             `json:"files_completed"`
	FilesPlanned    int             `json:"files_planned,omitempty"`
	FilesFailed     int             `json:"files_failed"`
	BytesDownloaded int64           `json:"bytes_downloaded"`
	BytesHuman      string          `json:"bytes_human"`
	ObjectsDeleted  int             `json:"objects_deleted"`
	Failures        []FailureRecord `json:"failures,omitempty"`
}

type DrainResult struct {
	TargetPath       string         `json:"target_path"`
	DryRun           bool           `json:"dry_run,omitempty"`
	BucketsProcessed int            `json:"buckets_processed"`
	BucketsIgnored   int            `json:"buckets_ignored"`
	Buckets          []BucketResult `json:"buckets"`
	TotalFiles       int            `json:"total_files"`
	TotalCompleted   int            `json:"total_completed"`
	TotalFailed      int            `json:"total_failed"`
	TotalBytes       int64          `json:"total_bytes"`
	TotalBytesHuman  string         `json:"total_bytes_human"`
	ObjectsDeleted   int            `json:"objects_deleted"`
	OperationTime    string         `json:"operation_time"`
	Duration         string         `json:"duration"`
}

// BucketListing is one row of the buckets command output.
type BucketListing struct {
	BucketName     string `json:"bucket_name"`
	Ignored        bool   `json:"ignored"`
	IgnoredBy      string `json:"ignored_by,omitempty"`
	ObjectCount    int64  `json:"object_count"`
	TotalSizeBytes int64  `json:"total_size_bytes"`
	TotalSizeHuman string `json:"total_size_human"`
}

// Local resume state of one object, derived purely from the filesystem.
const (
	StateMissing  = "missing"
	StatePartial  = "partial"
	StateComplete = "complete"
)

type ObjectStatus struct {
	Key        string `json:"key"`
	State      string `json:"state"`
	BytesLocal int64  `json:"bytes_local"`
	Size       int64  `json:"size"`
}

type BucketStatus struct {
	BucketName string         `json:"bucket_name"`
	Complete   int            `json:"complete"`
	Partial    int            `json:"partial"`
	Missing    int            `json:"missing"`
	Objects    []ObjectStatus `json:"objects"`
}

type StatusResult struct {
	TargetPath string         `json:"target_path"`
	Buckets    []BucketStatus `json:"buckets"`
}
