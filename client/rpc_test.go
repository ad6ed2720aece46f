package client

import (
	"context"
	"testing"
	"time"

	"github.com/danmuck/boincctl/internal/testutil/fakedaemon"
	"github.com/danmuck/boincctl/internal/testutil/testlog"
	"github.com/danmuck/boincctl/model"
	"github.com/danmuck/boincctl/protocol"
	"github.com/danmuck/boincctl/protocol/session"
	"github.com/danmuck/boincctl/protocol/xmlnode"
	"github.com/stretchr/testify/require"
)

func mustParseNode(t *testing.T, s string) xmlnode.Node {
	t.Helper()
	n, err := xmlnode.Parse(s)
	require.NoError(t, err)
	return n
}

func daemonHandler(t *testing.T) fakedaemon.Handler {
	hostInfo := mustParseNode(t, `<host_info><domain_name>node-7</domain_name><p_ncpus>16</p_ncpus><m_nbytes>34359738368</m_nbytes></host_info>`)
	msgs := mustParseNode(t, `<msgs><msg><project></project><pri>1</pri><seqno>5</seqno><body><![CDATA[Suspending computation]]></body><time>1700000000</time></msg><msg><seqno>6</seqno></msg></msgs>`)
	results := mustParseNode(t, `<results><result><name>r1</name><state>2</state><active_task><fraction_done>0.5</fraction_done></active_task></result></results>`)
	projects := mustParseNode(t, `<projects><project><name>Milkyway@home</name><url>https://milkyway.cs.rpi.edu/milkyway/</url></project></projects>`)
	amInfo := mustParseNode(t, `<acct_mgr_info><acct_mgr_url>https://bam.example/</acct_mgr_url><acct_mgr_name>BAM</acct_mgr_name></acct_mgr_info>`)

	return func(req []xmlnode.Node) []xmlnode.Node {
		switch req[0].Name {
		case "get_host_info":
			return []xmlnode.Node{hostInfo}
		case "get_messages":
			return []xmlnode.Node{msgs}
		case "get_results":
			return []xmlnode.Node{results}
		case "get_all_projects_list":
			return []xmlnode.Node{projects}
		case "acct_mgr_info":
			return []xmlnode.Node{amInfo}
		case "acct_mgr_rpc_poll":
			return []xmlnode.Node{xmlnode.New("acct_mgr_rpc_reply", xmlnode.NewText("error_num", "-204"))}
		case "exchange_versions":
			return []xmlnode.Node{xmlnode.New("server_version",
				xmlnode.NewText("major", "8"),
				xmlnode.NewText("minor", "0"),
				xmlnode.NewText("release", "4"),
			)}
		case "project_attach":
			url, _ := req[0].Child("project_url")
			if url.Text == "" {
				return []xmlnode.Node{xmlnode.NewText("error", "Missing URL")}
			}
			return []xmlnode.Node{xmlnode.NewText("error", "Already attached to project")}
		case "get_cc_status":
			return []xmlnode.Node{xmlnode.New("cc_status")}
		default:
			return []xmlnode.Node{xmlnode.New("success")}
		}
	}
}

func newDaemonClient(t *testing.T) (*Client, *fakedaemon.Daemon) {
	t.Helper()
	d := fakedaemon.Start(t, fakedaemon.Options{Password: "hunter2", Handler: daemonHandler(t)})
	cfg := DefaultConfig()
	cfg.Address = d.Addr()
	cfg.Password = "hunter2"
	cfg.Session.ConnectTimeout = time.Second
	cfg.Session.Backoff = session.BackoffConfig{}
	c := New(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, d
}

func TestRPCReadsTypedRecords(t *testing.T) {
	testlog.Start(t)
	c, d := newDaemonClient(t)
	ctx := context.Background()

	host, err := c.GetHostInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, "node-7", host.DomainName)
	require.Equal(t, int64(16), host.NCPUs)

	msgs, err := c.GetMessages(ctx, 4)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "Suspending computation", msgs[0].Body)
	require.Equal(t, int64(6), msgs[1].Seqno)

	results, err := c.GetResults(ctx, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, model.ResultFilesDownloaded, results[0].State)
	require.NotNil(t, results[0].ActiveTask)

	projects, err := c.GetProjects(ctx)
	require.NoError(t, err)
	require.Equal(t, "Milkyway@home", projects[0].Name)

	am, err := c.GetAccountManagerInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, "BAM", am.Name)

	code, err := c.GetAccountManagerRPCStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, -204, code)

	version, err := c.ExchangeVersions(ctx, model.VersionInfo{Major: 7, Minor: 24, Release: 1})
	require.NoError(t, err)
	require.Equal(t, model.VersionInfo{Major: 8, Minor: 0, Release: 4}, version)

	// every RPC reused the one handshaken connection
	require.Equal(t, 1, d.Accepted())

	reqs := d.Requests()
	require.Len(t, reqs, 7)
	require.True(t, reqs[1][0].Equal(xmlnode.NewText("get_messages", "4")), "got %v", reqs[1][0])
	require.True(t, reqs[2][0].Equal(xmlnode.New("get_results", xmlnode.NewText("active_only", "1"))), "got %v", reqs[2][0])
	require.True(t, reqs[6][0].Equal(model.EncodeVersionInfo(model.VersionInfo{Major: 7, Minor: 24, Release: 1})), "got %v", reqs[6][0])
}

func TestRPCCommandsEncodeRequests(t *testing.T) {
	testlog.Start(t)
	c, d := newDaemonClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetMode(ctx, model.ComponentGPU, model.RunModeNever, 3600))
	require.NoError(t, c.SetLanguage(ctx, "de_DE"))
	ok, err := c.ProjectOp(ctx, "https://example.org/", ProjectSuspend)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = c.ConnectToAccountManager(ctx, "https://bam.example/", "alice", "pw")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = c.RunBenchmarks(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	reqs := d.Requests()
	require.Len(t, reqs, 5)
	require.True(t, reqs[0][0].Equal(xmlnode.New("set_gpu_mode",
		xmlnode.NewText("duration", "3600"),
		xmlnode.New("never"),
	)), "got %v", reqs[0][0])
	require.True(t, reqs[1][0].Equal(xmlnode.New("set_language", xmlnode.NewText("language", "de_DE"))), "got %v", reqs[1][0])
	require.True(t, reqs[2][0].Equal(xmlnode.New("project_suspend", xmlnode.NewText("project_url", "https://example.org/"))), "got %v", reqs[2][0])
	require.Equal(t, "acct_mgr_rpc", reqs[3][0].Name)
	require.Len(t, reqs[3][0].Children, 3)

	_, err = c.ProjectOp(ctx, "https://example.org/", ProjectOp("explode"))
	require.Equal(t, protocol.KindNull, protocol.KindOf(err))
}

func TestRPCSurfacesClassifiedErrors(t *testing.T) {
	testlog.Start(t)
	c, d := newDaemonClient(t)
	ctx := context.Background()

	_, err := c.ProjectAttach(ctx, "", "auth", "name")
	require.Equal(t, protocol.KindInvalidURL, protocol.KindOf(err))
	_, err = c.ProjectAttach(ctx, "https://example.org/", "auth", "name")
	require.Equal(t, protocol.KindAlreadyAttached, protocol.KindOf(err))

	// classified errors are not retried and keep the session
	require.Len(t, d.Requests(), 2)
	require.Equal(t, 1, d.Accepted())
}

func TestRPCMissingObjects(t *testing.T) {
	testlog.Start(t)
	c, _ := newDaemonClient(t)
	ctx := context.Background()

	_, err := getObject(ctx, c, xmlnode.New("get_cc_status"), "host_info", model.DecodeHostInfo)
	require.Equal(t, protocol.KindDataParse, protocol.KindOf(err))
	require.Contains(t, err.Error(), "object not found")

	_, err = getList(ctx, c, xmlnode.New("get_cc_status"), "results", "result", model.DecodeTaskResult)
	require.Equal(t, protocol.KindDataParse, protocol.KindOf(err))
	require.Contains(t, err.Error(), "objects not found")
}

func TestRPCReconnectsAfterDroppedConnection(t *testing.T) {
	testlog.Start(t)
	c, d := newDaemonClient(t)
	ctx := context.Background()

	_, err := c.GetHostInfo(ctx)
	require.NoError(t, err)

	d.DropNext(1)
	host, err := c.GetHostInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, "node-7", host.DomainName)
	require.Equal(t, 2, d.Accepted())
	require.Len(t, d.Requests(), 3)
}
