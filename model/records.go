package model

import "time"

type VersionInfo struct {
	Major   int64 `json:"major"`
	Minor   int64 `json:"minor"`
	Release int64 `json:"release"`
}

func (v VersionInfo) String() string {
	return itoa(v.Major) + "." + itoa(v.Minor) + "." + itoa(v.Release)
}

type HostInfo struct {
	TimezoneShift int64  `json:"timezone_shift"`
	DomainName    string `json:"domain_name,omitempty"`
	SerialNum     string `json:"serialnum,omitempty"`
	IPAddr        string `json:"ip_addr,omitempty"`
	HostCPID      string `json:"host_cpid,omitempty"`

	NCPUs                int64   `json:"ncpus"`
	Vendor               string  `json:"vendor,omitempty"`
	Model                string  `json:"model,omitempty"`
	Features             string  `json:"features,omitempty"`
	FPOps                float64 `json:"fpops"`
	IOps                 float64 `json:"iops"`
	MemBW                float64 `json:"membw"`
	Calculated           float64 `json:"calculated"`
	VMExtensionsDisabled bool    `json:"vm_extensions_disabled"`

	MemoryBytes float64 `json:"memory_bytes"`
	CacheBytes  float64 `json:"cache_bytes"`
	SwapBytes   float64 `json:"swap_bytes"`

	DiskTotal float64 `json:"disk_total"`
	DiskFree  float64 `json:"disk_free"`

	OSName      string `json:"os_name,omitempty"`
	OSVersion   string `json:"os_version,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	MACAddress  string `json:"mac_address,omitempty"`

	VirtualBoxVersion string `json:"virtualbox_version,omitempty"`
}

type ProjectInfo struct {
	Name         string   `json:"name,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	URL          string   `json:"url,omitempty"`
	GeneralArea  string   `json:"general_area,omitempty"`
	SpecificArea string   `json:"specific_area,omitempty"`
	Description  string   `json:"description,omitempty"`
	Home         string   `json:"home,omitempty"`
	Platforms    []string `json:"platforms,omitempty"`
	Image        string   `json:"image,omitempty"`
}

type AccountManagerInfo struct {
	URL              string `json:"url,omitempty"`
	Name             string `json:"name,omitempty"`
	HaveCredentials  bool   `json:"have_credentials"`
	CookieRequired   bool   `json:"cookie_required"`
	CookieFailureURL string `json:"cookie_failure_url,omitempty"`
}

type Message struct {
	Project  string `json:"project,omitempty"`
	Priority int64  `json:"priority"`
	Seqno    int64  `json:"seqno"`
	Body     string `json:"body,omitempty"`
	// Timestamp is seconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`
}

func (m Message) Time() time.Time {
	return time.Unix(m.Timestamp, 0)
}

type ActiveTask struct {
	ActiveTaskState   ProcessState `json:"active_task_state"`
	AppVersionNum     int64        `json:"app_version_num"`
	Slot              int64        `json:"slot"`
	PID               int64        `json:"pid"`
	SchedulerState    CPUSched     `json:"scheduler_state"`
	CheckpointCPUTime float64      `json:"checkpoint_cpu_time"`
	FractionDone      float64      `json:"fraction_done"`
	CurrentCPUTime    float64      `json:"current_cpu_time"`
	ElapsedTime       float64      `json:"elapsed_time"`
	SwapSize          float64      `json:"swap_size"`
	WorkingSetSize    float64      `json:"working_set_size_smoothed"`
	ProgressRate      float64      `json:"progress_rate"`
}

// TaskResult is one work unit result known to the daemon.
type TaskResult struct {
	Name                      string      `json:"name,omitempty"`
	WUName                    string      `json:"wu_name,omitempty"`
	Platform                  string      `json:"platform,omitempty"`
	VersionNum                int64       `json:"version_num"`
	PlanClass                 string      `json:"plan_class,omitempty"`
	ProjectURL                string      `json:"project_url,omitempty"`
	FinalCPUTime              float64     `json:"final_cpu_time"`
	FinalElapsedTime          float64     `json:"final_elapsed_time"`
	ExitStatus                int64       `json:"exit_status"`
	State                     ResultState `json:"state"`
	ReportDeadline            float64     `json:"report_deadline"`
	ReceivedTime              float64     `json:"received_time"`
	EstimatedCPUTimeRemaining float64     `json:"estimated_cpu_time_remaining"`
	CompletedTime             float64     `json:"completed_time"`
	ActiveTask                *ActiveTask `json:"active_task,omitempty"`
}
