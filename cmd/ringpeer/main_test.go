package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ringdht "github.com/dep2p/go-ringdht"
	"github.com/dep2p/go-ringdht/internal/cmdutil"
	"github.com/dep2p/go-ringdht/pkg/types"
)

type fakePeer struct {
	ptr    types.RingPointers
	owner  ringdht.Owner
	err    error
	lookup []string
}

func (f *fakePeer) ID() types.NodeID { return f.ptr.Self.ID }
func (f *fakePeer) Pointers() types.RingPointers { return f.ptr }
func (f *fakePeer) Hash(key string) types.NodeID { return types.NodeID(len(key)) }
func (f *fakePeer) Lookup(_ context.Context, key string) (ringdht.Owner, error) {
	f.lookup = append(f.lookup, key)
	return f.owner, f.err
}

// TestParseFlags 测试命令行参数
func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer
	o, err := parseFlags([]string{"127.0.0.1", "9001", "127.0.0.1", "9000", "-interactive", "-metrics", "127.0.0.1:2112"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9001", o.listenAddr)
	assert.Equal(t, "127.0.0.1:9000", o.rendezvousAddr)
	assert.True(t, o.interactive)
	assert.Equal(t, "127.0.0.1:2112", o.metricsAddr)
	assert.Len(t, buildOptions(o), 2)

	_, err = parseFlags([]string{"127.0.0.1", "9001"}, &stderr)
	assert.ErrorIs(t, err, cmdutil.ErrUsage)

	t.Log("✅ 命令行参数测试通过")
}

// TestRun_Usage 测试参数错误以状态 2 退出
func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"127.0.0.1", "port", "127.0.0.1", "9000"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, cmdutil.ExitUsage, code)
	assert.Contains(t, stderr.String(), "用法")

	t.Log("✅ 参数错误退出码测试通过")
}

// TestRun_Version 测试 -version 打印构建信息后退出
func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-version"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Equal(t, ringdht.VersionInfo()+"\n", stdout.String())
	assert.Empty(t, stderr.String())

	t.Log("✅ 版本输出测试通过")
}

// TestConsole 测试交互命令
func TestConsole(t *testing.T) {
	self := types.NodeRef{ID: 3, Addr: types.NewAddress("127.0.0.1", 9001)}
	next := types.NodeRef{ID: 5, Addr: types.NewAddress("127.0.0.1", 9002)}
	f := &fakePeer{
		ptr:   types.RingPointers{Self: self, Prev: next, PrevPrevAddr: self.Addr, Next: next, NextNextAddr: self.Addr},
		owner: ringdht.Owner{Node: next, Position: 4},
	}

	var out bytes.Buffer
	c := newConsole(f, &out)
	c.Run(context.Background(), strings.NewReader("hash abcd\nlookup abcd\nring\nbogus\nlookup\nquit\nhash ignored\n"))

	text := out.String()
	assert.Contains(t, text, "abcd -> 4\n")
	assert.Contains(t, text, "由 5@127.0.0.1:9002 负责")
	assert.Contains(t, text, "self=")
	assert.Contains(t, text, "未知命令: bogus")
	assert.Contains(t, text, "用法: lookup <key>")
	assert.NotContains(t, text, "ignored", "quit 之后不再执行")
	assert.Equal(t, []string{"abcd"}, f.lookup)

	t.Log("✅ 交互命令测试通过")
}

// TestConsole_LookupError 测试查找失败的输出
func TestConsole_LookupError(t *testing.T) {
	f := &fakePeer{err: types.ErrLookupFailed}
	var out bytes.Buffer
	assert.True(t, newConsole(f, &out).exec(context.Background(), "lookup k"))
	assert.Contains(t, out.String(), "查找失败")

	t.Log("✅ 查找失败输出测试通过")
}
