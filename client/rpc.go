package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/danmuck/boincctl/model"
	"github.com/danmuck/boincctl/protocol"
	"github.com/danmuck/boincctl/protocol/xmlnode"
)

// ProjectOp names a project_<op> request.
type ProjectOp string

const (
	ProjectSuspend       ProjectOp = "suspend"
	ProjectResume        ProjectOp = "resume"
	ProjectUpdate        ProjectOp = "update"
	ProjectDetach        ProjectOp = "detach"
	ProjectReset         ProjectOp = "reset"
	ProjectNoMoreWork    ProjectOp = "nomorework"
	ProjectAllowMoreWork ProjectOp = "allowmorework"
)

func ParseProjectOp(s string) (ProjectOp, error) {
	switch op := ProjectOp(s); op {
	case ProjectSuspend, ProjectResume, ProjectUpdate, ProjectDetach, ProjectReset, ProjectNoMoreWork, ProjectAllowMoreWork:
		return op, nil
	default:
		return "", fmt.Errorf("client: unknown project op %q", s)
	}
}

// getObject runs req and decodes the first reply child named tag.
func getObject[T any](ctx context.Context, c *Client, req xmlnode.Node, tag string, decode func(xmlnode.Node) T) (T, error) {
	var zero T
	reply, err := c.call(ctx, req.Name, []xmlnode.Node{req})
	if err != nil {
		return zero, err
	}
	if _, err := VerifyReply(reply); err != nil {
		return zero, err
	}
	for _, child := range reply {
		if child.Name == tag {
			return decode(child), nil
		}
	}
	return zero, protocol.DataParseError("object not found")
}

// getList runs req and decodes every item child of each container child.
func getList[T any](ctx context.Context, c *Client, req xmlnode.Node, container, item string, decode func(xmlnode.Node) T) ([]T, error) {
	reply, err := c.call(ctx, req.Name, []xmlnode.Node{req})
	if err != nil {
		return nil, err
	}
	if _, err := VerifyReply(reply); err != nil {
		return nil, err
	}
	found := false
	out := []T{}
	for _, child := range reply {
		if child.Name != container {
			continue
		}
		found = true
		for _, n := range child.Children {
			if n.Name == item {
				out = append(out, decode(n))
			}
		}
	}
	if !found {
		return nil, protocol.DataParseError("objects not found")
	}
	return out, nil
}

// command runs req and returns the classified outcome.
func (c *Client) command(ctx context.Context, req xmlnode.Node) (bool, error) {
	reply, err := c.call(ctx, req.Name, []xmlnode.Node{req})
	if err != nil {
		return false, err
	}
	return VerifyReply(reply)
}

// GetMessages returns daemon log messages with sequence numbers above seqno.
func (c *Client) GetMessages(ctx context.Context, seqno int64) ([]model.Message, error) {
	req := xmlnode.NewText("get_messages", strconv.FormatInt(seqno, 10))
	return getList(ctx, c, req, "msgs", "msg", model.DecodeMessage)
}

// GetProjects returns the list of projects known to the daemon.
func (c *Client) GetProjects(ctx context.Context) ([]model.ProjectInfo, error) {
	return getList(ctx, c, xmlnode.New("get_all_projects_list"), "projects", "project", model.DecodeProjectInfo)
}

func (c *Client) GetAccountManagerInfo(ctx context.Context) (model.AccountManagerInfo, error) {
	return getObject(ctx, c, xmlnode.New("acct_mgr_info"), "acct_mgr_info", model.DecodeAccountManagerInfo)
}

// GetAccountManagerRPCStatus polls a pending account manager RPC and returns its error_num.
func (c *Client) GetAccountManagerRPCStatus(ctx context.Context) (int, error) {
	reply, err := c.call(ctx, "acct_mgr_rpc_poll", []xmlnode.Node{xmlnode.New("acct_mgr_rpc_poll")})
	if err != nil {
		return 0, err
	}
	if _, err := VerifyReply(reply); err != nil {
		return 0, err
	}
	found := false
	var code int
	for _, child := range reply {
		if child.Name != "acct_mgr_rpc_reply" {
			continue
		}
		if n, ok := child.Child("error_num"); ok {
			if v, err := strconv.Atoi(n.Text); err == nil {
				code = v
				found = true
			}
		}
	}
	if !found {
		return 0, protocol.DataParseError("acct_mgr_rpc_reply node not found")
	}
	return code, nil
}

// ConnectToAccountManager starts attaching to an account manager. The result
// is polled with GetAccountManagerRPCStatus.
func (c *Client) ConnectToAccountManager(ctx context.Context, url, name, password string) (bool, error) {
	return c.command(ctx, xmlnode.New("acct_mgr_rpc",
		xmlnode.NewText("url", url),
		xmlnode.NewText("name", name),
		xmlnode.NewText("password", password),
	))
}

// ExchangeVersions sends the client version and returns the daemon's.
func (c *Client) ExchangeVersions(ctx context.Context, info model.VersionInfo) (model.VersionInfo, error) {
	return getObject(ctx, c, model.EncodeVersionInfo(info), "server_version", model.DecodeVersionInfo)
}

func (c *Client) GetResults(ctx context.Context, activeOnly bool) ([]model.TaskResult, error) {
	req := xmlnode.New("get_results")
	if activeOnly {
		req.Children = append(req.Children, xmlnode.NewText("active_only", "1"))
	}
	return getList(ctx, c, req, "results", "result", model.DecodeTaskResult)
}

// SetMode sets the run mode of component for duration seconds; zero means permanently.
func (c *Client) SetMode(ctx context.Context, component model.Component, mode model.RunMode, duration float64) error {
	tag := component.RequestTag()
	if tag == "" {
		return protocol.NullError(fmt.Sprintf("unknown component %d", component))
	}
	req := xmlnode.New("set_"+tag+"_mode",
		xmlnode.NewText("duration", strconv.FormatFloat(duration, 'f', -1, 64)),
		xmlnode.New(mode.String()),
	)
	_, err := c.command(ctx, req)
	return err
}

func (c *Client) GetHostInfo(ctx context.Context) (model.HostInfo, error) {
	return getObject(ctx, c, xmlnode.New("get_host_info"), "host_info", model.DecodeHostInfo)
}

func (c *Client) SetLanguage(ctx context.Context, language string) error {
	_, err := c.command(ctx, xmlnode.New("set_language", xmlnode.NewText("language", language)))
	return err
}

// ProjectAttach attaches to a project with an account authenticator.
// Invalid URLs and duplicate attaches surface as KindInvalidURL and
// KindAlreadyAttached.
func (c *Client) ProjectAttach(ctx context.Context, url, authenticator, name string) (bool, error) {
	return c.command(ctx, xmlnode.New("project_attach",
		xmlnode.NewText("project_url", url),
		xmlnode.NewText("authenticator", authenticator),
		xmlnode.NewText("project_name", name),
	))
}

func (c *Client) ProjectOp(ctx context.Context, url string, op ProjectOp) (bool, error) {
	if _, err := ParseProjectOp(string(op)); err != nil {
		return false, protocol.NullError(err.Error())
	}
	return c.command(ctx, xmlnode.New("project_"+string(op), xmlnode.NewText("project_url", url)))
}

func (c *Client) RunBenchmarks(ctx context.Context) (bool, error) {
	return c.command(ctx, xmlnode.New("run_benchmarks"))
}
