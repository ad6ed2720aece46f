package model

import (
	"fmt"
	"strings"
)

// Component selects which activity a run mode applies to.
type Component uint8

const (
	ComponentCPU Component = iota
	ComponentGPU
	ComponentNetwork
)

func (c Component) String() string {
	switch c {
	case ComponentCPU:
		return "cpu"
	case ComponentGPU:
		return "gpu"
	case ComponentNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// RequestTag is the infix of the set_<tag>_mode request.
func (c Component) RequestTag() string {
	switch c {
	case ComponentCPU:
		return "run"
	case ComponentGPU:
		return "gpu"
	case ComponentNetwork:
		return "network"
	default:
		return ""
	}
}

func ParseComponent(s string) (Component, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu", "run":
		return ComponentCPU, nil
	case "gpu":
		return ComponentGPU, nil
	case "network", "net":
		return ComponentNetwork, nil
	default:
		return 0, fmt.Errorf("model: unknown component %q", s)
	}
}

type RunMode uint8

const (
	RunModeAlways RunMode = iota
	RunModeAuto
	RunModeNever
	RunModeRestore
)

// String is also the element name sent inside set_*_mode.
func (m RunMode) String() string {
	switch m {
	case RunModeAlways:
		return "always"
	case RunModeAuto:
		return "auto"
	case RunModeNever:
		return "never"
	case RunModeRestore:
		return "restore"
	default:
		return "unknown"
	}
}

func ParseRunMode(s string) (RunMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always":
		return RunModeAlways, nil
	case "auto":
		return RunModeAuto, nil
	case "never":
		return RunModeNever, nil
	case "restore":
		return RunModeRestore, nil
	default:
		return 0, fmt.Errorf("model: unknown run mode %q", s)
	}
}

// CPUSched is the scheduler state of an active task.
type CPUSched int

const (
	CPUSchedUninitialized CPUSched = 0
	CPUSchedPreempted     CPUSched = 1
	CPUSchedScheduled     CPUSched = 2
)

func (s CPUSched) String() string {
	switch s {
	case CPUSchedUninitialized:
		return "uninitialized"
	case CPUSchedPreempted:
		return "preempted"
	case CPUSchedScheduled:
		return "scheduled"
	default:
		return fmt.Sprintf("cpu_sched(%d)", int(s))
	}
}

func (s CPUSched) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ResultState mirrors the daemon's RESULT_* numbering.
type ResultState int

const (
	ResultNew              ResultState = 0
	ResultFilesDownloading ResultState = 1
	ResultFilesDownloaded  ResultState = 2
	ResultComputeError     ResultState = 3
	ResultFilesUploading   ResultState = 4
	ResultFilesUploaded    ResultState = 5
	ResultAborted          ResultState = 6
	ResultUploadFailed     ResultState = 7
)

// ResultStates lists every known state in numeric order.
var ResultStates = []ResultState{
	ResultNew,
	ResultFilesDownloading,
	ResultFilesDownloaded,
	ResultComputeError,
	ResultFilesUploading,
	ResultFilesUploaded,
	ResultAborted,
	ResultUploadFailed,
}

func (s ResultState) String() string {
	switch s {
	case ResultNew:
		return "new"
	case ResultFilesDownloading:
		return "files_downloading"
	case ResultFilesDownloaded:
		return "files_downloaded"
	case ResultComputeError:
		return "compute_error"
	case ResultFilesUploading:
		return "files_uploading"
	case ResultFilesUploaded:
		return "files_uploaded"
	case ResultAborted:
		return "aborted"
	case ResultUploadFailed:
		return "upload_failed"
	default:
		return fmt.Sprintf("result_state(%d)", int(s))
	}
}

func (s ResultState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ProcessState is the PROCESS_* state of an active task's process.
type ProcessState int

const (
	ProcessUninitialized ProcessState = 0
	ProcessExecuting     ProcessState = 1
	ProcessAbortPending  ProcessState = 5
	ProcessQuitPending   ProcessState = 8
	ProcessSuspended     ProcessState = 9
	ProcessCopyPending   ProcessState = 10
)

func (s ProcessState) String() string {
	switch s {
	case ProcessUninitialized:
		return "uninitialized"
	case ProcessExecuting:
		return "executing"
	case ProcessAbortPending:
		return "abort_pending"
	case ProcessQuitPending:
		return "quit_pending"
	case ProcessSuspended:
		return "suspended"
	case ProcessCopyPending:
		return "copy_pending"
	default:
		return fmt.Sprintf("process_state(%d)", int(s))
	}
}

func (s ProcessState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ResultState) UnmarshalText(b []byte) error {
	for _, state := range ResultStates {
		if state.String() == string(b) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("model: unknown result state %q", b)
}

func (s *ProcessState) UnmarshalText(b []byte) error {
	for _, state := range []ProcessState{ProcessUninitialized, ProcessExecuting, ProcessAbortPending, ProcessQuitPending, ProcessSuspended, ProcessCopyPending} {
		if state.String() == string(b) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("model: unknown process state %q", b)
}

func (s *CPUSched) UnmarshalText(b []byte) error {
	for _, state := range []CPUSched{CPUSchedUninitialized, CPUSchedPreempted, CPUSchedScheduled} {
		if state.String() == string(b) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("model: unknown scheduler state %q", b)
}
