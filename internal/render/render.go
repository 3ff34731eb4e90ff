// Package render turns a finished plan into its output formats: an aligned
// table for terminals, the JSON run document, and flat YAML anchors for
// inclusion in templated configuration.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/martinsuchenak/subnetplan/internal/model"
	"github.com/martinsuchenak/subnetplan/internal/pool"
	"github.com/martinsuchenak/subnetplan/internal/snapshot"
)

// JSON renders the plan as the canonical run document.
func JSON(p *model.Plan) ([]byte, error) {
	return snapshot.Encode(snapshot.FromPlan(p))
}

// Human renders the plan as an aligned table. Entries marked reserved in
// their metadata are hidden but still count toward column widths, so the
// layout does not shift when they are revealed.
func Human(p *model.Plan) string {
	lNF, lNet, lCIDR, lRange, lGW, lVLAN := len("NF"), len("NET"), len("CIDR"), len("IP_RANGE"), len("GW_IP"), len("VLAN")

	for _, n := range p.Nodes {
		lNF = maxLen(lNF, n.Node)
		for _, a := range n.Entries {
			lNet = maxLen(lNet, a.Name)
			lCIDR = maxLen(lCIDR, a.CIDR.String())
			lRange = maxLen(lRange, a.Range.String())
			lGW = maxLen(lGW, gatewayCol(a))
			lVLAN = maxLen(lVLAN, vlanCol(a))
		}
	}

	var rows []string
	addRow := func(nf, net, cidr, ipr, gw, vlan string) {
		rows = append(rows, fmt.Sprintf("%-*s  %-*s  %-*s  %-*s  %-*s %-*s",
			lNF, nf, lNet, net, lCIDR, cidr, lRange, ipr, lGW, gw, lVLAN, vlan))
	}

	addRow("NF", "NET", "CIDR", "IP_RANGE", "GW_IP", "VLAN")
	rows = append(rows, strings.Repeat("-", lNF+lNet+lCIDR+lRange+lGW+lVLAN+10))

	for _, n := range p.Nodes {
		for _, a := range n.Entries {
			if reserved(a.Metadata) {
				continue
			}
			addRow(n.Node, a.Name, a.CIDR.String(), a.Range.String(), gatewayCol(a), vlanCol(a))
		}
	}

	return strings.Join(rows, "\n")
}

// Pools renders the residual pool and VLAN state left after the run.
func Pools(p *model.Plan) string {
	var rows []string

	rows = append(rows, "Pools:")
	for _, ps := range p.Pools {
		if len(ps.Free) == 0 {
			rows = append(rows, fmt.Sprintf("  %s: exhausted", ps.Name))
			continue
		}
		frees := make([]string, len(ps.Free))
		for i, f := range ps.Free {
			frees[i] = f.String()
		}
		rows = append(rows, fmt.Sprintf("  %s: %s", ps.Name, strings.Join(frees, ", ")))
	}

	if len(p.Vlans) > 0 {
		rows = append(rows, "Vlan pools:")
		for _, vs := range p.Vlans {
			rows = append(rows, fmt.Sprintf("  %s: next %d, remaining %d", vs.Name, vs.Next, vs.Last-vs.Next))
		}
	}

	return strings.Join(rows, "\n")
}

// Anchors renders the plan as flat YAML anchors, one scalar per line, for
// referencing from other YAML files. Reserved nodes and entries are skipped.
func Anchors(p *model.Plan) string {
	lines := []string{"ipam:"}

	for _, n := range p.Nodes {
		if reserved(n.Metadata) {
			continue
		}
		base := "- &" + n.Node + "_"
		anchorMeta(&lines, base+"metadata_", n.Metadata)
		for _, a := range n.Entries {
			if reserved(a.Metadata) {
				continue
			}
			anchorEntry(&lines, base+"ipam_"+a.Name+"_", a)
		}
	}

	return strings.Join(lines, "\n")
}

func anchorEntry(lines *[]string, base string, a model.Allocation) {
	if a.VLAN != nil {
		anchor(lines, base+"vlan", *a.VLAN)
	}
	anchorMeta(lines, base+"metadata_", a.Metadata)
	if a.Label != "" {
		anchor(lines, base+"label", a.Label)
	}
	anchor(lines, base+"ip_range_start", a.Range.From().String())
	anchor(lines, base+"ip_range_end", a.Range.To().String())
	anchor(lines, base+"ip_range_str", a.Range.String())
	anchor(lines, base+"ip_range_size", pool.RangeSize(a.Range))
	if a.HasGateway() {
		anchor(lines, base+"gateway", a.Gateway.String())
	}
	anchor(lines, base+"cidr", a.CIDR.String())
	anchor(lines, base+"prefixlen", int(a.CIDR.Bits()))
	anchor(lines, base+"netmask", pool.Netmask(a.CIDR))
	anchor(lines, base+"seq", a.Seq)
	anchor(lines, base+"kind", a.Kind)
}

func anchorMeta(lines *[]string, base string, md map[string]any) {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		anchor(lines, base+k, md[k])
	}
}

func anchor(lines *[]string, path string, v any) {
	switch x := v.(type) {
	case nil:
		return
	case string:
		*lines = append(*lines, fmt.Sprintf("- &%s %s", path, x))
	case float64:
		// yaml and json both decode integral numbers as float64
		if x == float64(int64(x)) {
			*lines = append(*lines, fmt.Sprintf("- &%s %d", path, int64(x)))
			return
		}
		*lines = append(*lines, fmt.Sprintf("- &%s %v", path, x))
	default:
		*lines = append(*lines, fmt.Sprintf("- &%s %v", path, x))
	}
}

func gatewayCol(a model.Allocation) string {
	if a.HasGateway() {
		return a.Gateway.String()
	}
	return "-"
}

func vlanCol(a model.Allocation) string {
	if a.VLAN == nil {
		return "-"
	}
	return strconv.Itoa(*a.VLAN)
}

func reserved(md map[string]any) bool {
	v, ok := md["reserved"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func maxLen(cur int, s string) int {
	if len(s) > cur {
		return len(s)
	}
	return cur
}
