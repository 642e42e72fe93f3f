package check

import (
	"testing"

	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/island"
	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/netlist/reach"
)

func pipe() (*netlist.Netlist, netlist.NodeID, netlist.NodeID, netlist.NodeID) {
	nl := netlist.New("pipe", 10)
	in := nl.AddInterface("in", netlist.DirIn, 1)
	out := nl.AddInterface("out", netlist.DirOut, 1)
	rd := nl.Read("rd", in, 0)
	s := nl.ExplicitSync("s", 0, nl.DataOut(rd))
	wr := nl.Write("wr", out, 10, nl.DataOut(s))
	return nl, rd, s, wr
}

func TestNetlist(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(nl *netlist.Netlist, rd, s, wr netlist.NodeID)
		wantErr bool
	}{
		{
			name:    "valid",
			corrupt: func(*netlist.Netlist, netlist.NodeID, netlist.NodeID, netlist.NodeID) {},
		},
		{
			name: "driver without user entry",
			corrupt: func(nl *netlist.Netlist, rd, s, wr netlist.NodeID) {
				nl.MustNode(rd).Outputs[0].Users = nil
			},
			wantErr: true,
		},
		{
			name: "user pointing elsewhere",
			corrupt: func(nl *netlist.Netlist, rd, s, wr netlist.NodeID) {
				nl.MustNode(s).Inputs[0].Driver = netlist.OutRef{}
			},
			wantErr: true,
		},
		{
			name: "duplicate user",
			corrupt: func(nl *netlist.Netlist, rd, s, wr netlist.NodeID) {
				o := &nl.MustNode(rd).Outputs[0]
				o.Users = append(o.Users, o.Users[0])
			},
			wantErr: true,
		},
		{
			name: "dangling reference to removed node",
			corrupt: func(nl *netlist.Netlist, rd, s, wr netlist.NodeID) {
				nl.MustNode(rd).Removed = true
			},
			wantErr: true,
		},
		{
			name: "payload mismatch",
			corrupt: func(nl *netlist.Netlist, rd, s, wr netlist.NodeID) {
				nl.MustNode(s).Payload = &netlist.Operator{Op: "add"}
			},
			wantErr: true,
		},
		{
			name: "schedule length mismatch",
			corrupt: func(nl *netlist.Netlist, rd, s, wr netlist.NodeID) {
				nl.MustNode(wr).ScheduledIn = nil
			},
			wantErr: true,
		},
		{
			name: "cycle",
			corrupt: func(nl *netlist.Netlist, rd, s, wr netlist.NodeID) {
				if _, err := nl.AddOrdering(wr, rd); err != nil {
					panic(err)
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nl, rd, s, wr := pipe()
			tt.corrupt(nl, rd, s, wr)
			err := Netlist(nl)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Netlist() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeStructuralInvariant) {
				t.Errorf("Netlist() code = %v, want %v", errors.GetCode(err), errors.ErrCodeStructuralInvariant)
			}
		})
	}
}

func TestFindCycle(t *testing.T) {
	nl, _, s, wr := pipe()
	if c := FindCycle(nl); c != nil {
		t.Fatalf("FindCycle() = %v, want nil", c)
	}
	if _, err := nl.AddOrdering(wr, s); err != nil {
		t.Fatal(err)
	}
	c := FindCycle(nl)
	if len(c) != 2 || c[0] != s || c[1] != wr {
		t.Errorf("FindCycle() = %v, want [%d %d]", c, s, wr)
	}
}

func TestLoopPayload(t *testing.T) {
	nl := netlist.New("loop", 10)
	c := nl.Const("c", 1, 0)
	l := nl.LoopStatus("L", 0)
	nl.AddLoopPort(l, netlist.PortEnter, nl.DataOut(c))
	nl.AddLoopPort(l, netlist.PortReenter, nl.DataOut(c))
	if err := Netlist(nl); err != nil {
		t.Fatalf("Netlist() error = %v", err)
	}
	nl.MustNode(l).Loop().Reenter = []int{7}
	if err := Netlist(nl); err == nil {
		t.Errorf("Netlist() with bad reenter index = nil, want error")
	}
}

func TestIslands(t *testing.T) {
	nl, _, s, wr := pipe()
	p := island.Discover(nl, reach.New(nl))
	if err := Islands(p); err != nil {
		t.Fatalf("Islands() error = %v", err)
	}

	is := p.InputOf(s)
	is.Inputs = append(is.Inputs, s)
	if err := Islands(p); err == nil {
		t.Errorf("Islands() with duplicate input = nil, want error")
	}
	is.Inputs = is.Inputs[:len(is.Inputs)-1]

	is.Nodes = nil
	if err := Islands(p); err == nil {
		t.Errorf("Islands() with %d unowned = nil, want error", wr)
	}
}
