package io

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/netlist"
)

var channelKindToString = map[netlist.ChannelKind]string{
	netlist.Backedge:    "backedge",
	netlist.Forwardedge: "forwardedge",
}

type fixture struct {
	Name       string    `toml:"name"`
	ClkPeriod  int64     `toml:"clk_period"`
	Interfaces []iface   `toml:"interface,omitempty"`
	Channels   []channel `toml:"channel,omitempty"`
	Nodes      []node    `toml:"node,omitempty"`
}

type iface struct {
	Name  string `toml:"name"`
	Dir   string `toml:"dir"`
	Ports int    `toml:"ports,omitempty"`
}

type channel struct {
	Name        string  `toml:"name"`
	Kind        string  `toml:"kind"`
	Init        []int64 `toml:"init,omitempty"`
	ReadAt      int64   `toml:"read_at"`
	WriteAt     int64   `toml:"write_at"`
	Data        string  `toml:"data,omitempty"`
	Loop        string  `toml:"loop,omitempty"`
	ControlOnly bool    `toml:"control_only,omitempty"`
}

type node struct {
	Name        string   `toml:"name"`
	Kind        string   `toml:"kind"`
	At          int64    `toml:"at"`
	Latency     int64    `toml:"latency,omitempty"`
	Op          string   `toml:"op,omitempty"`
	Value       int64    `toml:"value,omitempty"`
	Width       int      `toml:"width,omitempty"`
	Iface       string   `toml:"iface,omitempty"`
	NonBlocking bool     `toml:"non_blocking,omitempty"`
	Inputs      []string `toml:"inputs,omitempty"`
	ExtraCond   string   `toml:"extra_cond,omitempty"`
	SkipWhen    string   `toml:"skip_when,omitempty"`
	Ordering    []string `toml:"ordering,omitempty"`

	Enter         []string `toml:"enter,omitempty"`
	EnterFromExit []bool   `toml:"enter_from_exit,omitempty"`
	Reenter       []string `toml:"reenter,omitempty"`
	Exit          []string `toml:"exit,omitempty"`

	ClusterIn  []string `toml:"cluster_in,omitempty"`
	ClusterOut []string `toml:"cluster_out,omitempty"`
}

// WriteTOML encodes a netlist as a TOML fixture and writes it to w.
// Removed nodes and channels are skipped. Node names must be unique since
// they are how the fixture refers to ports.
//
// The output can be re-imported with [ReadTOML]; exporting the re-imported
// netlist yields the same document.
func WriteTOML(nl *netlist.Netlist, w io.Writer) error {
	out, err := encode(nl)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportTOML writes a netlist to a TOML fixture at path.
// This is a convenience wrapper around [WriteTOML] for file-based output.
func ExportTOML(nl *netlist.Netlist, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteTOML(nl, f)
}

func encode(nl *netlist.Netlist) (*fixture, error) {
	seen := map[string]bool{}
	for _, n := range nl.Nodes() {
		if seen[n.Name] {
			return nil, errors.New(errors.ErrCodeInvalidFixture, "duplicate node name %q", n.Name)
		}
		seen[n.Name] = true
	}

	out := &fixture{Name: nl.Name, ClkPeriod: nl.ClkPeriod}
	for _, i := range nl.Interfaces() {
		out.Interfaces = append(out.Interfaces, iface{Name: i.Name, Dir: i.Dir.String(), Ports: i.Ports})
	}

	for _, c := range nl.Channels() {
		ch := channel{
			Name:        c.Name,
			Kind:        channelKindToString[c.Kind],
			Init:        slices.Clone(c.Init),
			ReadAt:      nl.MustNode(c.Read).ZeroTime(),
			WriteAt:     nl.MustNode(c.Write).ZeroTime(),
			ControlOnly: c.ControlOnly,
		}
		if c.Loop != netlist.NoNode {
			ch.Loop = nl.MustNode(c.Loop).Name
		}
		wr := nl.MustNode(c.Write)
		if i, ok := wr.InputOf(netlist.PortData); ok && wr.Inputs[i].Driver.Connected() {
			ch.Data = ref(nl, wr.Inputs[i].Driver)
		}
		out.Channels = append(out.Channels, ch)
	}

	for _, n := range nl.Nodes() {
		nd, keep := encodeNode(nl, n)
		if keep {
			out.Nodes = append(out.Nodes, nd)
		}
	}
	return out, nil
}

// encodeNode converts one node. Channel ends are only emitted when they
// carry inputs beyond the channel data.
func encodeNode(nl *netlist.Netlist, n *netlist.Node) (node, bool) {
	nd := node{Name: n.Name, Kind: n.Kind.String(), At: n.ZeroTime()}
	switch p := n.Payload.(type) {
	case *netlist.Operator:
		nd.Op = p.Op
		if len(n.ScheduledOut) > 0 {
			nd.Latency = n.ScheduledOut[0] - n.ZeroTime()
		}
	case *netlist.Constant:
		nd.Value = p.Value
		if p.Width != 1 {
			nd.Width = p.Width
		}
	case *netlist.IO:
		nd.Iface = p.Iface.Name
		nd.NonBlocking = !p.Blocking
	case *netlist.Cluster:
		nd.ClusterIn = names(nl, p.Inputs)
		nd.ClusterOut = names(nl, p.Outputs)
	}

	extra := false
	for _, in := range n.Inputs {
		d := in.Driver
		if !d.Connected() {
			if in.Kind == netlist.PortData && n.Kind == netlist.KindOperator {
				nd.Inputs = append(nd.Inputs, "")
			}
			continue
		}
		switch in.Kind {
		case netlist.PortData:
			if n.Kind != netlist.KindBufferWrite {
				nd.Inputs = append(nd.Inputs, ref(nl, d))
			}
			continue
		case netlist.PortExtraCond:
			nd.ExtraCond = ref(nl, d)
		case netlist.PortSkipWhen:
			nd.SkipWhen = ref(nl, d)
		case netlist.PortOrdering:
			if nl.Out(d).Kind == netlist.PortOrdering {
				nd.Ordering = append(nd.Ordering, nl.MustNode(d.Node).Name)
			} else {
				nd.Ordering = append(nd.Ordering, ref(nl, d))
			}
		case netlist.PortEnter:
			nd.Enter = append(nd.Enter, ref(nl, d))
		case netlist.PortReenter:
			nd.Reenter = append(nd.Reenter, ref(nl, d))
		case netlist.PortExit:
			nd.Exit = append(nd.Exit, ref(nl, d))
		}
		extra = true
	}
	if l := n.Loop(); l != nil && slices.Contains(l.EnterFromExit, true) {
		nd.EnterFromExit = slices.Clone(l.EnterFromExit)
	}

	if n.Kind == netlist.KindBufferRead || n.Kind == netlist.KindBufferWrite {
		nd.At = 0
		return nd, extra
	}
	return nd, true
}

// ref names an output port: the bare node name for data outputs,
// "node.port" otherwise.
func ref(nl *netlist.Netlist, r netlist.OutRef) string {
	n := nl.MustNode(r.Node)
	out := n.Outputs[r.Index]
	if out.Kind == netlist.PortData {
		if i, ok := n.OutputOf(netlist.PortData); ok && i == r.Index {
			return n.Name
		}
	}
	return n.Name + "." + out.Name
}

func names(nl *netlist.Netlist, ids []netlist.NodeID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, nl.MustNode(id).Name)
	}
	return out
}
