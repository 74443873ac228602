package api

// Item is the wire representation of a clip or merged track.
type Item struct {
	ID              string   `json:"id"`
	OriginalName    string   `json:"originalName"`
	DisplayName     string   `json:"displayName"`
	Filename        string   `json:"filename"`
	Order           int      `json:"order,omitempty"`
	DurationSeconds float64  `json:"duration"`
	Merged          bool     `json:"merged"`
	ContentHash     string   `json:"hash,omitempty"`
	MergedFrom      []string `json:"mergedFrom,omitempty"`
	NormalizeVolume bool     `json:"normalizeVolume,omitempty"`
	NormalizeGainDB *float64 `json:"normalizeGainDb,omitempty"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`
}

// UploadResponse acknowledges a single uploaded file. Duplicate uploads
// return the already-stored item with IsDuplicate set.
type UploadResponse struct {
	Item
	IsDuplicate  bool   `json:"isDuplicate"`
	UploadedName string `json:"uploadedName"`
}

// ListResponse wraps a library listing.
type ListResponse struct {
	Files []Item `json:"files"`
}

// UploadListResponse acknowledges a multi-file upload in submission order.
type UploadListResponse struct {
	Files []UploadResponse `json:"files"`
}

// RenameRequest changes an item's display name.
type RenameRequest struct {
	DisplayName string `json:"displayName"`
}

// DeleteAllResponse reports how many items were removed.
type DeleteAllResponse struct {
	Deleted int `json:"deleted"`
}

// ReorderRequest supplies the complete new ordering of unmerged clips.
type ReorderRequest struct {
	FileIDs []string `json:"fileIds"`
}

// MergeRequest submits a background merge job. RequestID lets the client
// name the job so it can be tracked before the acknowledgement arrives;
// when absent the daemon assigns one.
type MergeRequest struct {
	RequestID       string   `json:"requestId,omitempty"`
	FileIDs         []string `json:"fileIds"`
	OutputName      string   `json:"outputName"`
	NormalizeVolume bool     `json:"normalizeVolume"`
	NormalizeGainDB float64  `json:"normalizeGainDb"`
}

// MergeResponse acknowledges a queued merge job.
type MergeResponse struct {
	TaskID     string `json:"taskId"`
	Status     string `json:"status"`
	TotalFiles int    `json:"totalFiles"`
}

// TaskRequest identifies a background job.
type TaskRequest struct {
	TaskID string `json:"taskId"`
}

// TaskStatusResponse is a point-in-time snapshot of a merge job.
type TaskStatusResponse struct {
	TaskID       string `json:"taskId"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	Stage        string `json:"stage,omitempty"`
	CurrentIndex int    `json:"currentIndex,omitempty"`
	TotalCount   int    `json:"totalCount,omitempty"`
	Error        string `json:"error,omitempty"`
	File         *Item  `json:"file,omitempty"`
}

// CancelResponse acknowledges a cancellation request.
type CancelResponse struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

// JobEvent is the websocket frame pushed to subscribers.
type JobEvent struct {
	Type         string `json:"type"`
	TaskID       string `json:"taskId"`
	Progress     int    `json:"progress,omitempty"`
	Stage        string `json:"stage,omitempty"`
	CurrentIndex int    `json:"currentIndex,omitempty"`
	TotalCount   int    `json:"totalCount,omitempty"`
	Message      string `json:"message,omitempty"`
	File         *Item  `json:"file,omitempty"`
}

// DependencyStatus reports the availability of one external tool.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus reports daemon runtime information.
type DaemonStatus struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	LibraryDBPath string         `json:"libraryDbPath"`
	LockFilePath  string         `json:"lockFilePath"`
	ClipCount     int            `json:"clipCount"`
	MergedCount   int            `json:"mergedCount"`
	JobCounts     map[string]int `json:"jobCounts"`
	Subscribers   int            `json:"subscribers"`
	WorkerCount   int            `json:"workerCount"`
	QueueDepth    int            `json:"queueDepth"`

	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
