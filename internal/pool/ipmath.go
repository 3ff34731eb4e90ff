package pool

import (
	"encoding/binary"
	"math"
	"net"

	"inet.af/netaddr"
)

// Address arithmetic over netaddr types. Interval sizes are clamped to
// MaxUint64, which is far beyond anything a plan can carve one address at
// a time; boundary addresses are always computed exactly.

func ipToU128(ip netaddr.IP) (hi, lo uint64) {
	b := ip.As16()
	return binary.BigEndian.Uint64(b[:8]), binary.BigEndian.Uint64(b[8:])
}

func u128ToIP(hi, lo uint64) netaddr.IP {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], hi)
	binary.BigEndian.PutUint64(b[8:], lo)
	return netaddr.IPFrom16(b).Unmap()
}

// AddrAdd returns ip advanced by n addresses.
func AddrAdd(ip netaddr.IP, n uint64) netaddr.IP {
	hi, lo := ipToU128(ip)
	sum := lo + n
	if sum < lo {
		hi++
	}
	return u128ToIP(hi, sum)
}

// AddrSub returns ip moved back by n addresses.
func AddrSub(ip netaddr.IP, n uint64) netaddr.IP {
	hi, lo := ipToU128(ip)
	if n > lo {
		hi--
	}
	return u128ToIP(hi, lo-n)
}

// RangeSize returns the number of addresses in [r.From, r.To], clamped.
func RangeSize(r netaddr.IPRange) uint64 {
	fhi, flo := ipToU128(r.From())
	thi, tlo := ipToU128(r.To())
	lo := tlo - flo
	hi := thi - fhi
	if tlo < flo {
		hi--
	}
	if hi > 0 || lo == math.MaxUint64 {
		return math.MaxUint64
	}
	return lo + 1
}

// HostBits returns the number of host bits in the prefix.
func HostBits(p netaddr.IPPrefix) uint8 {
	bits := uint8(128)
	if p.IP().Is4() {
		bits = 32
	}
	return bits - p.Bits()
}

// LastAddr returns the final address of the prefix.
func LastAddr(p netaddr.IPPrefix) netaddr.IP {
	return p.Range().To()
}

// AddrAt returns the i-th address of the prefix (0 = network address).
// The caller is responsible for i being inside the network.
func AddrAt(p netaddr.IPPrefix, i uint64) netaddr.IP {
	return AddrAdd(p.Masked().IP(), i)
}

// Netmask renders the prefix's mask in the conventional textual form
// (dotted quad for IPv4).
func Netmask(p netaddr.IPPrefix) string {
	bits := 128
	if p.IP().Is4() {
		bits = 32
	}
	return net.IP(net.CIDRMask(int(p.Bits()), bits)).String()
}
