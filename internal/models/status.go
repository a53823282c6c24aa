package models

// ProcessStatus enumerates the lifecycle states of a
// remote job run. The zero value is StatusCreated.
type ProcessStatus int

const (
	StatusCreated     ProcessStatus = 0
	StatusUploading   ProcessStatus = 1
	StatusRunning     ProcessStatus = 2
	StatusWaiting     ProcessStatus = 3
	StatusDownloading ProcessStatus = 4
	StatusFinished    ProcessStatus = 5

	StatusError         ProcessStatus = -1
	StatusErrorDownload ProcessStatus = -2
)

func (s ProcessStatus) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusUploading:
		return "uploading"
	case StatusRunning:
		return "running"
	case StatusWaiting:
		return "waiting"
	case StatusDownloading:
		return "downloading"
	case StatusFinished:
		return "finished"
	case StatusError:
		return "error"
	case StatusErrorDownload:
		return "error_download"
	default:
		return "unknown"
	}
}

// Idle reports whether a process in this status has no
// remote job in flight and may be replaced or restarted.
func (s ProcessStatus) Idle() bool {
	switch s {
	case StatusCreated, StatusFinished, StatusError:
		return true
	default:
		return false
	}
}

// ProjectStep enumerates the coarse workflow stages of a
// project. The step is derived, never persisted.
type ProjectStep string

const (
	StepUploading       ProjectStep = "uploading"
	StepFARunning       ProjectStep = "fa_running"
	StepG2PRunning      ProjectStep = "g2p_running"
	StepCheckDictionary ProjectStep = "check_dictionary"
	StepFinished        ProjectStep = "finished"
)
