package model

import (
	"strconv"
	"strings"

	"github.com/danmuck/boincctl/protocol/xmlnode"
)

func text(n xmlnode.Node) string {
	return strings.TrimSpace(n.AnyText())
}

func parseInt(n xmlnode.Node) int64 {
	v, err := strconv.ParseInt(text(n), 10, 64)
	if err != nil {
		// daemons sometimes print integral fields as "3.000000"
		f, ferr := strconv.ParseFloat(text(n), 64)
		if ferr != nil {
			return 0
		}
		return int64(f)
	}
	return v
}

func parseFloat(n xmlnode.Node) float64 {
	v, err := strconv.ParseFloat(text(n), 64)
	if err != nil {
		return 0
	}
	return v
}

// parseFlag treats an empty element as set, matching <have_credentials/>.
func parseFlag(n xmlnode.Node) bool {
	switch strings.ToLower(text(n)) {
	case "", "1", "true", "yes":
		return true
	default:
		return false
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func DecodeVersionInfo(n xmlnode.Node) VersionInfo {
	var v VersionInfo
	for _, c := range n.Children {
		switch c.Name {
		case "major":
			v.Major = parseInt(c)
		case "minor":
			v.Minor = parseInt(c)
		case "release":
			v.Release = parseInt(c)
		}
	}
	return v
}

// EncodeVersionInfo builds the exchange_versions request body.
func EncodeVersionInfo(v VersionInfo) xmlnode.Node {
	return xmlnode.New("exchange_versions",
		xmlnode.NewText("major", itoa(v.Major)),
		xmlnode.NewText("minor", itoa(v.Minor)),
		xmlnode.NewText("release", itoa(v.Release)),
	)
}

func DecodeHostInfo(n xmlnode.Node) HostInfo {
	var h HostInfo
	for _, c := range n.Children {
		switch c.Name {
		case "timezone":
			h.TimezoneShift = parseInt(c)
		case "domain_name":
			h.DomainName = text(c)
		case "serialnum":
			h.SerialNum = text(c)
		case "ip_addr":
			h.IPAddr = text(c)
		case "host_cpid":
			h.HostCPID = text(c)
		case "p_ncpus":
			h.NCPUs = parseInt(c)
		case "p_vendor":
			h.Vendor = text(c)
		case "p_model":
			h.Model = text(c)
		case "p_features":
			h.Features = text(c)
		case "p_fpops":
			h.FPOps = parseFloat(c)
		case "p_iops":
			h.IOps = parseFloat(c)
		case "p_membw":
			h.MemBW = parseFloat(c)
		case "p_calculated":
			h.Calculated = parseFloat(c)
		case "p_vm_extensions_disabled":
			h.VMExtensionsDisabled = parseFlag(c)
		case "m_nbytes":
			h.MemoryBytes = parseFloat(c)
		case "m_cache":
			h.CacheBytes = parseFloat(c)
		case "m_swap":
			h.SwapBytes = parseFloat(c)
		case "d_total":
			h.DiskTotal = parseFloat(c)
		case "d_free":
			h.DiskFree = parseFloat(c)
		case "os_name":
			h.OSName = text(c)
		case "os_version":
			h.OSVersion = text(c)
		case "product_name":
			h.ProductName = text(c)
		case "mac_address":
			h.MACAddress = text(c)
		case "virtualbox_version":
			h.VirtualBoxVersion = text(c)
		}
	}
	return h
}

func DecodeProjectInfo(n xmlnode.Node) ProjectInfo {
	var p ProjectInfo
	for _, c := range n.Children {
		switch c.Name {
		case "name":
			p.Name = text(c)
		case "summary":
			p.Summary = text(c)
		case "url":
			p.URL = text(c)
		case "general_area":
			p.GeneralArea = text(c)
		case "specific_area":
			p.SpecificArea = text(c)
		case "description":
			p.Description = text(c)
		case "home":
			p.Home = text(c)
		case "image":
			p.Image = text(c)
		case "platforms":
			for _, pl := range c.Children {
				if pl.Name == "platform" && text(pl) != "" {
					p.Platforms = append(p.Platforms, text(pl))
				}
			}
		}
	}
	return p
}

func DecodeAccountManagerInfo(n xmlnode.Node) AccountManagerInfo {
	var a AccountManagerInfo
	for _, c := range n.Children {
		switch c.Name {
		case "acct_mgr_url":
			a.URL = text(c)
		case "acct_mgr_name":
			a.Name = text(c)
		case "have_credentials":
			a.HaveCredentials = parseFlag(c)
		case "cookie_required":
			a.CookieRequired = parseFlag(c)
		case "cookie_failure_url":
			a.CookieFailureURL = text(c)
		}
	}
	return a
}

func DecodeMessage(n xmlnode.Node) Message {
	var m Message
	for _, c := range n.Children {
		switch c.Name {
		case "body":
			m.Body = text(c)
		case "project":
			m.Project = text(c)
		case "pri":
			m.Priority = parseInt(c)
		case "seqno":
			m.Seqno = parseInt(c)
		case "time":
			m.Timestamp = parseInt(c)
		}
	}
	return m
}

func DecodeActiveTask(n xmlnode.Node) ActiveTask {
	var a ActiveTask
	for _, c := range n.Children {
		switch c.Name {
		case "active_task_state":
			a.ActiveTaskState = ProcessState(parseInt(c))
		case "app_version_num":
			a.AppVersionNum = parseInt(c)
		case "slot":
			a.Slot = parseInt(c)
		case "pid":
			a.PID = parseInt(c)
		case "scheduler_state":
			a.SchedulerState = CPUSched(parseInt(c))
		case "checkpoint_cpu_time":
			a.CheckpointCPUTime = parseFloat(c)
		case "fraction_done":
			a.FractionDone = parseFloat(c)
		case "current_cpu_time":
			a.CurrentCPUTime = parseFloat(c)
		case "elapsed_time":
			a.ElapsedTime = parseFloat(c)
		case "swap_size":
			a.SwapSize = parseFloat(c)
		case "working_set_size_smoothed":
			a.WorkingSetSize = parseFloat(c)
		case "progress_rate":
			a.ProgressRate = parseFloat(c)
		}
	}
	return a
}

func DecodeTaskResult(n xmlnode.Node) TaskResult {
	var r TaskResult
	for _, c := range n.Children {
		switch c.Name {
		case "name":
			r.Name = text(c)
		case "wu_name":
			r.WUName = text(c)
		case "platform":
			r.Platform = text(c)
		case "version_num":
			r.VersionNum = parseInt(c)
		case "plan_class":
			r.PlanClass = text(c)
		case "project_url":
			r.ProjectURL = text(c)
		case "final_cpu_time":
			r.FinalCPUTime = parseFloat(c)
		case "final_elapsed_time":
			r.FinalElapsedTime = parseFloat(c)
		case "exit_status":
			r.ExitStatus = parseInt(c)
		case "state":
			r.State = ResultState(parseInt(c))
		case "report_deadline":
			r.ReportDeadline = parseFloat(c)
		case "received_time":
			r.ReceivedTime = parseFloat(c)
		case "estimated_cpu_time_remaining":
			r.EstimatedCPUTimeRemaining = parseFloat(c)
		case "completed_time":
			r.CompletedTime = parseFloat(c)
		case "active_task":
			at := DecodeActiveTask(c)
			r.ActiveTask = &at
		}
	}
	return r
}
