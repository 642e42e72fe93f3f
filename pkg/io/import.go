package io

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/netlist"
)

var channelKindFromString = map[string]netlist.ChannelKind{
	"backedge":    netlist.Backedge,
	"forwardedge": netlist.Forwardedge,
}

var dirFromString = map[string]netlist.Direction{
	"in":  netlist.DirIn,
	"out": netlist.DirOut,
}

// ReadTOML decodes a TOML fixture from r into a netlist.
//
// A fixture declares interfaces, channels and nodes:
//
//	name = "acc"
//	clk_period = 10
//
//	[[interface]]
//	name = "in"
//	dir = "in"
//
//	[[channel]]
//	name = "sum"
//	kind = "backedge"
//	init = [0]
//	read_at = 0
//	write_at = 10
//	data = "add"
//
//	[[node]]
//	name = "rd"
//	kind = "read"
//	iface = "in"
//	at = 0
//
//	[[node]]
//	name = "add"
//	kind = "operator"
//	op = "add"
//	at = 10
//	inputs = ["rd", "sum_rd"]
//
// Ports are referenced as "node" (its data output) or "node.port" (any
// output by name, e.g. "rd.valid"; valid and ready style outputs are
// created on first reference). Every channel contributes two nodes named
// "<channel>_rd" and "<channel>_wr"; a [[node]] entry of kind buffer_read or
// buffer_write attaches conditions and ordering to such an end instead of
// creating a node.
//
// Nodes are created first and connected afterwards, so references may
// point forward. ReadTOML returns an error with code
// [errors.ErrCodeInvalidFixture] for unknown keys, kinds, interfaces or
// references and for duplicate names. ReadTOML does not close r.
func ReadTOML(r io.Reader) (*netlist.Netlist, error) {
	var data fixture
	md, err := toml.NewDecoder(r).Decode(&data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFixture, err, "decode")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidFixture, "unknown key %q", undecoded[0].String())
	}
	return build(&data)
}

// ImportTOML reads a TOML fixture at path and returns the decoded netlist.
//
// The path is validated with [errors.ValidateFixturePath] before opening.
// ImportTOML returns the same errors as [ReadTOML] for malformed fixtures.
func ImportTOML(path string) (*netlist.Netlist, error) {
	if err := errors.ValidateFixturePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadTOML(f)
}

type builder struct {
	nl    *netlist.Netlist
	ids   map[string]netlist.NodeID
	chans map[string]netlist.ChannelID
}

func build(data *fixture) (*netlist.Netlist, error) {
	if data.ClkPeriod <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidFixture, "clk_period must be positive, got %d", data.ClkPeriod)
	}
	b := &builder{
		nl:    netlist.New(data.Name, data.ClkPeriod),
		ids:   map[string]netlist.NodeID{},
		chans: map[string]netlist.ChannelID{},
	}

	for _, i := range data.Interfaces {
		if err := b.addInterface(i); err != nil {
			return nil, err
		}
	}
	for _, c := range data.Channels {
		if err := b.addChannel(c); err != nil {
			return nil, err
		}
	}
	for _, n := range data.Nodes {
		if err := b.addNode(n); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.Name, err)
		}
	}

	// Loop ports first: their enable outputs may be referenced below.
	for _, n := range data.Nodes {
		if err := b.connectLoop(n); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.Name, err)
		}
	}
	for _, n := range data.Nodes {
		if err := b.connect(n); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.Name, err)
		}
	}
	for _, c := range data.Channels {
		if err := b.connectChannel(c); err != nil {
			return nil, fmt.Errorf("channel %s: %w", c.Name, err)
		}
	}
	for _, n := range data.Nodes {
		if n.Latency != 0 {
			b.nl.SetLatency(b.ids[n.Name], n.Latency)
		}
	}
	return b.nl, nil
}

func (b *builder) addInterface(i iface) error {
	if err := errors.ValidateIdentifier("interface", i.Name); err != nil {
		return err
	}
	if _, dup := b.nl.Interface(i.Name); dup {
		return errors.New(errors.ErrCodeInvalidFixture, "duplicate interface %q", i.Name)
	}
	dir, ok := dirFromString[i.Dir]
	if !ok {
		return errors.New(errors.ErrCodeInvalidFixture, "interface %s: invalid dir %q", i.Name, i.Dir)
	}
	b.nl.AddInterface(i.Name, dir, i.Ports)
	return nil
}

func (b *builder) addChannel(c channel) error {
	if err := errors.ValidateName("channel", c.Name); err != nil {
		return err
	}
	if _, dup := b.chans[c.Name]; dup {
		return errors.New(errors.ErrCodeInvalidFixture, "duplicate channel %q", c.Name)
	}
	kind, ok := channelKindFromString[c.Kind]
	if !ok {
		return errors.New(errors.ErrCodeInvalidFixture, "channel %s: invalid kind %q", c.Name, c.Kind)
	}
	id, r, w := b.nl.NewChannel(c.Name, kind, c.Init, c.ReadAt, c.WriteAt, netlist.OutRef{})
	b.chans[c.Name] = id
	for _, end := range []netlist.NodeID{r, w} {
		if err := b.register(b.nl.MustNode(end).Name, end); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) register(name string, id netlist.NodeID) error {
	if _, dup := b.ids[name]; dup {
		return errors.New(errors.ErrCodeInvalidFixture, "duplicate node name %q", name)
	}
	b.ids[name] = id
	return nil
}

func (b *builder) addNode(n node) error {
	if err := errors.ValidateName("node", n.Name); err != nil {
		return err
	}
	if strings.Contains(n.Name, ".") {
		return errors.New(errors.ErrCodeInvalidName, "node name %q contains '.'", n.Name)
	}
	kind, ok := netlist.KindFromString(n.Kind)
	if !ok {
		return errors.New(errors.ErrCodeInvalidFixture, "invalid kind %q", n.Kind)
	}

	nl := b.nl
	var id netlist.NodeID
	switch kind {
	case netlist.KindOperator:
		id = nl.Operator(n.Name, n.Op, n.At, make([]netlist.OutRef, len(n.Inputs))...)
	case netlist.KindConst:
		id = nl.Const(n.Name, n.Value, n.At)
		if n.Width > 0 {
			nl.MustNode(id).Payload.(*netlist.Constant).Width = n.Width
		}
	case netlist.KindRead, netlist.KindWrite:
		i, ok := nl.Interface(n.Iface)
		if !ok {
			return errors.New(errors.ErrCodeInvalidFixture, "unknown interface %q", n.Iface)
		}
		if kind == netlist.KindRead {
			id = nl.Read(n.Name, i, n.At)
		} else {
			id = nl.Write(n.Name, i, n.At, netlist.OutRef{})
		}
		if n.NonBlocking {
			nl.SetBlocking(id, false)
		}
	case netlist.KindExplicitSync:
		id = nl.ExplicitSync(n.Name, n.At, netlist.OutRef{})
	case netlist.KindLoopStatus:
		id = nl.LoopStatus(n.Name, n.At)
	case netlist.KindIoClusterCore:
		// Members are resolved in connect, once every node exists.
		id = nl.IoClusterCore(n.Name, nil, nil)
	case netlist.KindBufferRead, netlist.KindBufferWrite:
		id, ok := b.ids[n.Name]
		if !ok || nl.MustNode(id).Kind != kind {
			return errors.New(errors.ErrCodeInvalidFixture, "%s is not a declared channel end", n.Kind)
		}
		return nil
	default:
		netlist.UnknownKind(kind)
	}
	return b.register(n.Name, id)
}

func (b *builder) connectLoop(n node) error {
	id := b.ids[n.Name]
	if b.nl.MustNode(id).Kind != netlist.KindLoopStatus {
		if len(n.Enter)+len(n.Reenter)+len(n.Exit) > 0 {
			return errors.New(errors.ErrCodeInvalidFixture, "loop ports on a %s node", n.Kind)
		}
		return nil
	}
	if len(n.EnterFromExit) > 0 && len(n.EnterFromExit) != len(n.Enter) {
		return errors.New(errors.ErrCodeInvalidFixture, "%d enter ports, %d enter_from_exit flags", len(n.Enter), len(n.EnterFromExit))
	}
	roles := []struct {
		kind netlist.PortKind
		refs []string
	}{
		{netlist.PortEnter, n.Enter},
		{netlist.PortReenter, n.Reenter},
		{netlist.PortExit, n.Exit},
	}
	for _, role := range roles {
		for _, s := range role.refs {
			r, err := b.resolve(s)
			if err != nil {
				return err
			}
			b.nl.AddLoopPort(id, role.kind, r)
		}
	}
	if len(n.EnterFromExit) > 0 {
		copy(b.nl.MustNode(id).Loop().EnterFromExit, n.EnterFromExit)
	}
	return nil
}

func (b *builder) connect(n node) error {
	nl := b.nl
	id := b.ids[n.Name]
	nd := nl.MustNode(id)

	switch nd.Kind {
	case netlist.KindOperator:
		for i, s := range n.Inputs {
			if s == "" {
				continue
			}
			if err := b.connectTo(s, netlist.InRef{Node: id, Index: i}); err != nil {
				return err
			}
		}
	case netlist.KindWrite, netlist.KindExplicitSync:
		if len(n.Inputs) > 1 {
			return errors.New(errors.ErrCodeInvalidFixture, "%s takes one data input, got %d", n.Kind, len(n.Inputs))
		}
		if len(n.Inputs) == 1 {
			i, _ := nd.InputOf(netlist.PortData)
			if err := b.connectTo(n.Inputs[0], netlist.InRef{Node: id, Index: i}); err != nil {
				return err
			}
		}
	case netlist.KindIoClusterCore:
		c := nd.Payload.(*netlist.Cluster)
		var err error
		if c.Inputs, err = b.lookup(n.ClusterIn); err != nil {
			return err
		}
		if c.Outputs, err = b.lookup(n.ClusterOut); err != nil {
			return err
		}
	default:
		if len(n.Inputs) > 0 {
			return errors.New(errors.ErrCodeInvalidFixture, "%s takes no data inputs", n.Kind)
		}
	}

	for _, c := range []struct {
		kind netlist.PortKind
		ref  string
	}{{netlist.PortExtraCond, n.ExtraCond}, {netlist.PortSkipWhen, n.SkipWhen}} {
		if c.ref == "" {
			continue
		}
		r, err := b.resolve(c.ref)
		if err != nil {
			return err
		}
		if _, err := nl.SetCondition(id, c.kind, r); err != nil {
			return err
		}
	}

	for _, s := range n.Ordering {
		if !strings.Contains(s, ".") {
			from, ok := b.ids[s]
			if !ok {
				return errors.New(errors.ErrCodeInvalidFixture, "unknown node %q", s)
			}
			if _, err := nl.AddOrdering(from, id); err != nil {
				return err
			}
			continue
		}
		in := netlist.InRef{Node: id, Index: nl.AddInput(id, netlist.PortOrdering, "order")}
		if err := b.connectTo(s, in); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) connectChannel(c channel) error {
	ch := b.nl.Channel(b.chans[c.Name])
	if c.Loop != "" {
		id, ok := b.ids[c.Loop]
		if !ok || b.nl.MustNode(id).Kind != netlist.KindLoopStatus {
			return errors.New(errors.ErrCodeInvalidFixture, "%q is not a loop status node", c.Loop)
		}
		ch.Loop = id
	}
	if c.ControlOnly {
		if c.Data != "" {
			return errors.New(errors.ErrCodeInvalidFixture, "control-only channel has data %q", c.Data)
		}
		wr := b.nl.MustNode(ch.Write)
		i, _ := wr.InputOf(netlist.PortData)
		b.nl.RemoveInput(netlist.InRef{Node: ch.Write, Index: i})
		ch.ControlOnly = true
		return nil
	}
	if c.Data == "" {
		return nil
	}
	r, err := b.resolve(c.Data)
	if err != nil {
		return err
	}
	return b.nl.ConnectChannelData(ch.ID, r)
}

func (b *builder) connectTo(s string, in netlist.InRef) error {
	r, err := b.resolve(s)
	if err != nil {
		return err
	}
	return b.nl.Connect(r, in)
}

// resolve parses "node" or "node.port".
func (b *builder) resolve(s string) (netlist.OutRef, error) {
	name, port, hasPort := strings.Cut(s, ".")
	id, ok := b.ids[name]
	if !ok {
		return netlist.OutRef{}, errors.New(errors.ErrCodeInvalidFixture, "unknown node %q", name)
	}
	n := b.nl.MustNode(id)
	if !hasPort {
		i, ok := n.OutputOf(netlist.PortData)
		if !ok {
			return netlist.OutRef{}, errors.New(errors.ErrCodeInvalidFixture, "%s has no data output", name)
		}
		return netlist.OutRef{Node: id, Index: i}, nil
	}
	for i, out := range n.Outputs {
		if out.Name == port {
			return netlist.OutRef{Node: id, Index: i}, nil
		}
	}
	switch port {
	case "valid", "validNB", "ready", "readyNB":
		if !n.IsIO() {
			return netlist.OutRef{}, errors.New(errors.ErrCodeInvalidFixture, "%s: %s output on a %s node", s, port, n.Kind)
		}
		return b.nl.SyncOutput(id, syncPortKind(port)), nil
	case "order":
		return b.nl.OrderingOut(id), nil
	}
	return netlist.OutRef{}, errors.New(errors.ErrCodeInvalidFixture, "%s has no output %q", name, port)
}

func syncPortKind(port string) netlist.PortKind {
	switch port {
	case "valid":
		return netlist.PortValid
	case "validNB":
		return netlist.PortValidNB
	case "ready":
		return netlist.PortReady
	}
	return netlist.PortReadyNB
}

func (b *builder) lookup(names []string) ([]netlist.NodeID, error) {
	var ids []netlist.NodeID
	for _, name := range names {
		id, ok := b.ids[name]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidFixture, "unknown node %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
