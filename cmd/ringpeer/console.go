package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	ringdht "github.com/dep2p/go-ringdht"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// ringPeer console 使用的节点能力
type ringPeer interface {
	ID() types.NodeID
	Pointers() types.RingPointers
	Hash(key string) types.NodeID
	Lookup(ctx context.Context, key string) (ringdht.Owner, error)
}

// console 交互命令 worker
//
// 逐行读取标准输入，每条命令同步执行。
type console struct {
	peer ringPeer
	out  io.Writer
}

func newConsole(p ringPeer, out io.Writer) *console {
	return &console{peer: p, out: out}
}

// Run 读到 quit、EOF 或 ctx 取消时返回
func (c *console) Run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if !c.exec(ctx, scanner.Text()) {
			return
		}
	}
}

// exec 执行一行命令，返回 false 表示退出
func (c *console) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	switch fields[0] {
	case "quit", "exit":
		return false

	case "ring":
		p := c.peer.Pointers()
		fmt.Fprintf(c.out, "self=%s prev=%s prevPrev=%s next=%s nextNext=%s\n",
			p.Self, p.Prev, p.PrevPrevAddr, p.Next, p.NextNextAddr)

	case "hash":
		if len(fields) != 2 {
			fmt.Fprintln(c.out, "用法: hash <key>")
			return true
		}
		fmt.Fprintf(c.out, "%s -> %d\n", fields[1], c.peer.Hash(fields[1]))

	case "lookup":
		if len(fields) != 2 {
			fmt.Fprintln(c.out, "用法: lookup <key>")
			return true
		}
		owner, err := c.peer.Lookup(ctx, fields[1])
		if err != nil {
			fmt.Fprintf(c.out, "查找失败: %v\n", err)
			return true
		}
		fmt.Fprintf(c.out, "%s -> %d 由 %s 负责\n", fields[1], owner.Position, owner.Node)

	default:
		fmt.Fprintf(c.out, "未知命令: %s\n", fields[0])
	}
	return true
}
