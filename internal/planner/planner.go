package planner

import (
	"errors"
	"fmt"
	"strings"

	"inet.af/netaddr"

	"github.com/martinsuchenak/subnetplan/internal/log"
	"github.com/martinsuchenak/subnetplan/internal/model"
	"github.com/martinsuchenak/subnetplan/internal/pool"
)

// Planner materializes the schema's pools and works through its entries in
// replay-stable order. All pools are exclusively owned by the planner for
// the run's duration; a run either completes in full or fails with no
// output.
type Planner struct {
	schema *model.Schema

	pools *pool.Registry
	vlans map[string]*pool.VlanSequencer

	// One shared slicer per parent entry, living for the whole run so old
	// and new children of the same parent never overlap.
	slicers map[model.EntryKey]*pool.RangeSlicer

	results map[model.EntryKey]*model.Allocation
}

// Run executes a full allocation pass: pools rebuilt fresh from the schema,
// old entries replayed in id order, then new entries, direct allocations
// before deferred ranges within each group.
func Run(schema *model.Schema, prior *model.Snapshot) (*model.Plan, error) {
	p := &Planner{
		schema:  schema,
		pools:   pool.NewRegistry(),
		vlans:   make(map[string]*pool.VlanSequencer),
		slicers: make(map[model.EntryKey]*pool.RangeSlicer),
		results: make(map[model.EntryKey]*model.Allocation),
	}

	if err := p.materializePools(); err != nil {
		return nil, err
	}
	for _, d := range schema.VlanPools {
		p.vlans[d.Name] = pool.NewVlanSequencer(d.Name, d.Start, d.End)
	}

	old, fresh := Reconcile(schema, prior)
	log.Debug("entries reconciled", "old", len(old), "new", len(fresh))

	// Old before new, never interleaved: a new entry can never pre-empt an
	// address an old entry received on an earlier run.
	if err := p.processGroup(old); err != nil {
		return nil, err
	}
	if err := p.processGroup(fresh); err != nil {
		return nil, err
	}

	return p.assemble(), nil
}

// materializePools builds a SubnetPool per subnet declaration. Derived
// subnets resolve their parent first, recursively, with cycle detection.
func (p *Planner) materializePools() error {
	index := make(map[string]model.SubnetDecl, len(p.schema.Subnets))
	for _, d := range p.schema.Subnets {
		index[d.Name] = d
	}

	visiting := make(map[string]bool)

	var resolve func(name string) (*pool.SubnetPool, error)
	resolve = func(name string) (*pool.SubnetPool, error) {
		if sp, ok := p.pools.Get(name); ok {
			return sp, nil
		}
		d, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("unknown subnet %q", name)
		}
		if visiting[name] {
			return nil, &CycleError{Subnet: name}
		}
		visiting[name] = true
		defer delete(visiting, name)

		switch {
		case d.CIDR != "":
			block, err := netaddr.ParseIPPrefix(d.CIDR)
			if err != nil {
				return nil, fmt.Errorf("subnet %q: %w", name, err)
			}
			start, end, err := parseBounds(d)
			if err != nil {
				return nil, err
			}
			return p.pools.AddDeclared(name, block, start, end)

		case d.From != "":
			parent, err := resolve(d.From)
			if err != nil {
				return nil, err
			}
			block, err := parent.AllocateSubnet(d.PrefixLen)
			if err != nil {
				return nil, fmt.Errorf("deriving subnet %q from %q: %w", name, d.From, err)
			}
			log.Debug("derived subnet materialized", "name", name, "parent", d.From, "block", block.String())
			return p.pools.AddDerived(name, block)

		default:
			return nil, fmt.Errorf("subnet %q declares neither cidr nor from", name)
		}
	}

	for _, d := range p.schema.Subnets {
		if _, err := resolve(d.Name); err != nil {
			return err
		}
	}
	return nil
}

func parseBounds(d model.SubnetDecl) (start, end netaddr.IP, err error) {
	if d.StartIP != "" {
		start, err = netaddr.ParseIP(d.StartIP)
		if err != nil {
			return netaddr.IP{}, netaddr.IP{}, fmt.Errorf("subnet %q start_ip: %w", d.Name, err)
		}
	}
	if d.EndIP != "" {
		end, err = netaddr.ParseIP(d.EndIP)
		if err != nil {
			return netaddr.IP{}, netaddr.IP{}, fmt.Errorf("subnet %q end_ip: %w", d.Name, err)
		}
	}
	return start, end, nil
}

// processGroup runs the two passes over one entry group: direct subnet
// allocations first, derived ranges deferred until every parent in the
// group has its result.
func (p *Planner) processGroup(entries []model.Entry) error {
	var deferred []model.Entry

	for _, e := range entries {
		kind, err := e.Request.Kind()
		if err != nil {
			var ue *model.UnsupportedRequestError
			if errors.As(err, &ue) {
				ue.Node, ue.Name = e.Node, e.Name
			}
			return err
		}
		if kind == model.RequestRange {
			deferred = append(deferred, e)
			continue
		}
		if err := p.allocateSubnetEntry(e); err != nil {
			return err
		}
	}

	for _, e := range deferred {
		if err := p.allocateRangeEntry(e); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) node(name string) (*model.Node, error) {
	for i := range p.schema.Nodes {
		if p.schema.Nodes[i].Name == name {
			return &p.schema.Nodes[i], nil
		}
	}
	return nil, fmt.Errorf("unknown node %q", name)
}

func (p *Planner) allocateSubnetEntry(e model.Entry) error {
	node, err := p.node(e.Node)
	if err != nil {
		return err
	}

	poolName, ok := node.Subnets[e.Label]
	if !ok {
		return fmt.Errorf("entry %s: node %q maps no subnet to label %q", e.Key(), e.Node, e.Label)
	}
	sp, ok := p.pools.Get(poolName)
	if !ok {
		return fmt.Errorf("entry %s: unknown subnet pool %q", e.Key(), poolName)
	}

	// A VLAN id is allocated only when the node maps the label to a pool.
	var vid *int
	if vpName, ok := node.VlanPools[e.Label]; ok {
		seq, ok := p.vlans[vpName]
		if !ok {
			return fmt.Errorf("entry %s: unknown VLAN pool %q", e.Key(), vpName)
		}
		id, err := seq.Alloc()
		if err != nil {
			return fmt.Errorf("entry %s: %w", e.Key(), err)
		}
		vid = &id
	}

	network, err := sp.AllocateSubnet(e.Request.PrefixLen)
	if err != nil {
		return fmt.Errorf("entry %s: %w", e.Key(), err)
	}

	gw, usable := gatewayAndRange(network)
	p.results[e.Key()] = &model.Allocation{
		Name:     e.Name,
		Seq:      e.Seq,
		Kind:     model.KindSubnet,
		Label:    e.Label,
		VLAN:     vid,
		Metadata: e.Metadata,
		CIDR:     network,
		Range:    usable,
		Gateway:  gw,
	}
	return nil
}

func (p *Planner) allocateRangeEntry(e model.Entry) error {
	parentKey, err := p.parseRef(e)
	if err != nil {
		return err
	}

	parent, ok := p.results[parentKey]
	if !ok {
		return fmt.Errorf("entry %s: parent entry %s has no allocation", e.Key(), parentKey)
	}
	// Ranges only derive from subnet entries. Chaining a range off another
	// range would slice the grandparent's network a second time.
	if parent.Kind != model.KindSubnet {
		return fmt.Errorf("entry %s: parent entry %s is not a subnet allocation", e.Key(), parentKey)
	}

	slicer, ok := p.slicers[parentKey]
	if !ok {
		slicer = pool.NewRangeSlicer(parent.CIDR)
		p.slicers[parentKey] = slicer
	}

	size := e.Request.Size
	fromBack := size < 0
	if fromBack {
		size = -size
	}
	rng, err := slicer.Alloc(uint64(size), fromBack)
	if err != nil {
		return fmt.Errorf("entry %s: %w", e.Key(), err)
	}

	gw, _ := gatewayAndRange(parent.CIDR)
	p.results[e.Key()] = &model.Allocation{
		Name:     e.Name,
		Seq:      e.Seq,
		Kind:     model.KindIPRange,
		Metadata: e.Metadata,
		CIDR:     parent.CIDR,
		Range:    rng,
		Gateway:  gw,
	}
	return nil
}

// parseRef resolves a "node.name" or ".name" parent reference; an omitted
// node qualifier means the entry's own node.
func (p *Planner) parseRef(e model.Entry) (model.EntryKey, error) {
	parts := strings.Split(e.Request.From, ".")
	if len(parts) != 2 || parts[1] == "" {
		return model.EntryKey{}, &MalformedReferenceError{Entry: e.Key(), Ref: e.Request.From}
	}
	node := parts[0]
	if node == "" {
		node = e.Node
	}
	return model.EntryKey{Node: node, Name: parts[1]}, nil
}

// gatewayAndRange computes the conventional gateway (second-to-last
// address) and usable range ([1, -2]) of a network holding at least four
// addresses; smaller networks get no gateway and are usable in full.
func gatewayAndRange(network netaddr.IPPrefix) (netaddr.IP, netaddr.IPRange) {
	if pool.HostBits(network) >= 2 {
		gw := pool.AddrSub(pool.LastAddr(network), 1)
		return gw, netaddr.IPRangeFrom(pool.AddrAdd(network.Masked().IP(), 1), gw)
	}
	return netaddr.IP{}, network.Range()
}

func (p *Planner) assemble() *model.Plan {
	plan := &model.Plan{Properties: p.schema.Properties}

	for _, n := range p.schema.Nodes {
		na := model.NodeAllocations{Node: n.Name, Metadata: n.Metadata}
		for _, e := range n.Entries {
			if a, ok := p.results[e.Key()]; ok {
				na.Entries = append(na.Entries, *a)
			}
		}
		plan.Nodes = append(plan.Nodes, na)
	}

	for _, name := range p.pools.Names() {
		sp, _ := p.pools.Get(name)
		plan.Pools = append(plan.Pools, model.PoolState{Name: name, Free: sp.Free()})
	}
	for _, d := range p.schema.VlanPools {
		seq := p.vlans[d.Name]
		next, last := seq.Unused()
		plan.Vlans = append(plan.Vlans, model.VlanState{Name: d.Name, Next: next, Last: last})
	}
	return plan
}
